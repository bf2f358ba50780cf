package services

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"listing-importer/models"
)

// Input columns, schema version 1.
const (
	colName = iota + 1
	colDescription
	colCity
	colPreviewPhoto
	colPhotos
	colPremium
	colType
	colRooms
	colGuests
	colPrice
	colFeatures
	colCoordinates
	colOwnerName
	colOwnerEmail
	colOwnerAvatar
	colOwnerType
)

// ColumnCount is the number of tab-separated columns in a record.
const ColumnCount = colOwnerType

const listSeparator = ";"

var columnNames = [ColumnCount + 1]string{
	colName:         "name",
	colDescription:  "description",
	colCity:         "city",
	colPreviewPhoto: "preview_photo",
	colPhotos:       "photos",
	colPremium:      "premium",
	colType:         "type",
	colRooms:        "rooms",
	colGuests:       "guests",
	colPrice:        "price",
	colFeatures:     "features",
	colCoordinates:  "coordinates",
	colOwnerName:    "owner_name",
	colOwnerEmail:   "owner_email",
	colOwnerAvatar:  "owner_avatar",
	colOwnerType:    "owner_type",
}

// fieldColumns maps validator namespaces (without the root type) to columns.
var fieldColumns = map[string]int{
	"Name":               colName,
	"Description":        colDescription,
	"City":               colCity,
	"PreviewPhoto":       colPreviewPhoto,
	"Photos":             colPhotos,
	"Type":               colType,
	"Rooms":              colRooms,
	"Guests":             colGuests,
	"Price":              colPrice,
	"Features":           colFeatures,
	"Location.Latitude":  colCoordinates,
	"Location.Longitude": colCoordinates,
	"Owner.Name":         colOwnerName,
	"Owner.Email":        colOwnerEmail,
	"Owner.Avatar":       colOwnerAvatar,
	"Owner.Type":         colOwnerType,
}

// indexSuffix strips "[3]" from "Photos[3]".
var indexSuffix = regexp.MustCompile(`\[\d+\]`)

// Parser turns raw tab-separated lines into ListingRecords. It holds no
// state between calls and never touches the store.
type Parser struct {
	validate *validator.Validate
}

func NewParser() *Parser {
	return &Parser{validate: validator.New()}
}

// Parse converts one line. lineNumber is only used to label errors, which
// are always *ParseError.
func (p *Parser) Parse(lineNumber int, text string) (*models.ListingRecord, error) {
	cols := strings.Split(text, "\t")
	if len(cols) != ColumnCount {
		return nil, &ParseError{
			Line:     lineNumber,
			Expected: fmt.Sprintf("%d columns", ColumnCount),
			Actual:   fmt.Sprintf("%d columns", len(cols)),
		}
	}

	f := &fields{line: lineNumber, cols: cols}
	rec := &models.ListingRecord{
		Name:         f.text(colName),
		Description:  f.text(colDescription),
		City:         f.text(colCity),
		PreviewPhoto: f.text(colPreviewPhoto),
		Photos:       f.list(colPhotos),
		Premium:      f.boolean(colPremium),
		Type:         oneOf(f, colType, models.ListingTypes),
		Rooms:        f.integer(colRooms),
		Guests:       f.integer(colGuests),
		Price:        f.number(colPrice),
		Features:     features(f, colFeatures),
		Location:     f.coordinates(colCoordinates),
		Owner: models.OwnerProfile{
			Name:   f.text(colOwnerName),
			Email:  f.text(colOwnerEmail),
			Avatar: f.text(colOwnerAvatar),
			Type:   oneOf(f, colOwnerType, models.OwnerTypes),
		},
	}
	if f.err != nil {
		return nil, f.err
	}

	if err := p.validate.Struct(rec); err != nil {
		return nil, constraintError(lineNumber, cols, err)
	}
	return rec, nil
}

// constraintError reports the first failed domain constraint.
func constraintError(line int, cols []string, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ParseError{Line: line, Expected: "a valid record", Actual: err.Error()}
	}

	fe := verrs[0]
	ns := fe.StructNamespace()
	if i := strings.Index(ns, "."); i >= 0 {
		ns = ns[i+1:]
	}
	col := fieldColumns[indexSuffix.ReplaceAllString(ns, "")]

	pe := &ParseError{Line: line, Column: col, Expected: describeTag(fe), Actual: fmt.Sprint(fe.Value())}
	if col > 0 {
		pe.Field = columnNames[col]
		pe.Actual = cols[col-1]
	}
	return pe
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "a value"
	case "email":
		return "an email address"
	case "unique":
		return "no repeated entries"
	case "len":
		return "exactly " + fe.Param() + " entries"
	case "min":
		return "at least " + fe.Param()
	case "max":
		return "at most " + fe.Param()
	default:
		return fe.Tag() + " " + fe.Param()
	}
}

// fields coerces columns one at a time and keeps the first failure.
type fields struct {
	line int
	cols []string
	err  error
}

func (f *fields) raw(col int) string {
	return strings.TrimSpace(f.cols[col-1])
}

func (f *fields) fail(col int, expected string) {
	if f.err != nil {
		return
	}
	f.err = &ParseError{
		Line:     f.line,
		Column:   col,
		Field:    columnNames[col],
		Expected: expected,
		Actual:   f.cols[col-1],
	}
}

func (f *fields) text(col int) string {
	return f.raw(col)
}

func (f *fields) integer(col int) int {
	n, err := strconv.Atoi(f.raw(col))
	if err != nil {
		f.fail(col, "an integer")
	}
	return n
}

func (f *fields) number(col int) float64 {
	v, err := strconv.ParseFloat(f.raw(col), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		f.fail(col, "a number")
		return 0
	}
	return v
}

// boolean accepts exactly "true" and "false".
func (f *fields) boolean(col int) bool {
	switch f.raw(col) {
	case "true":
		return true
	case "false":
		return false
	}
	f.fail(col, "true or false")
	return false
}

func (f *fields) list(col int) []string {
	raw := f.raw(col)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, listSeparator)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func (f *fields) coordinates(col int) models.Coordinates {
	parts := strings.Split(f.raw(col), ",")
	if len(parts) != 2 {
		f.fail(col, "latitude,longitude")
		return models.Coordinates{}
	}
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lng, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil {
		f.fail(col, "latitude,longitude")
		return models.Coordinates{}
	}
	return models.Coordinates{Latitude: lat, Longitude: lng}
}

func oneOf[T ~string](f *fields, col int, allowed []T) T {
	v := f.raw(col)
	for _, a := range allowed {
		if string(a) == v {
			return a
		}
	}
	f.fail(col, "one of "+joinValues(allowed))
	return ""
}

func features(f *fields, col int) []models.Feature {
	items := f.list(col)
	out := make([]models.Feature, 0, len(items))
	for _, item := range items {
		found := false
		for _, known := range models.Features {
			if string(known) == item {
				out = append(out, known)
				found = true
				break
			}
		}
		if !found {
			f.fail(col, "features from "+joinValues(models.Features))
			return nil
		}
	}
	return out
}

func joinValues[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = string(v)
	}
	return strings.Join(parts, "|")
}
