package services

import (
	"bufio"
	"fmt"
	"io"
	"math/rand/v2"
	"strconv"
	"strings"

	"listing-importer/models"
)

type city struct {
	name string
	lat  float64
	lng  float64
}

var mockCities = []city{
	{"Paris", 48.85661, 2.351499},
	{"Cologne", 50.938361, 6.959974},
	{"Brussels", 50.846557, 4.351697},
	{"Amsterdam", 52.370216, 4.895168},
	{"Hamburg", 53.550341, 10.000654},
	{"Dusseldorf", 51.225402, 6.776314},
}

var mockTitles = []string{
	"Beautiful & luxurious apartment at great location",
	"Wood and stone place",
	"Canal View Prinsengracht",
	"Nice, cozy, warm big bed apartment",
	"Quiet cozy and light room",
	"Penthouse with a rooftop terrace",
	"Small loft next to the old town",
}

var mockDescriptions = []string{
	"A quiet cozy and picturesque place that hides behind a river by the unique lightness.",
	"Spacious rooms with large windows, close to the main station and the old market.",
	"Fully renovated flat with a balcony, a fast connection and a very friendly host.",
	"Sunny home with a garden, perfect for families travelling with small children.",
}

var mockOwners = []struct {
	name  string
	email string
	kind  models.OwnerType
}{
	{"Angelina", "angelina@example.com", models.OwnerPro},
	{"Max", "max@example.com", models.OwnerRegular},
	{"Oliver", "oliver.conner@example.com", models.OwnerRegular},
	{"Kate", "kate@example.com", models.OwnerPro},
	{"Emma", "emma@example.com", models.OwnerRegular},
}

// Generator produces valid import lines from built-in data pools. The same
// seed always yields the same lines.
type Generator struct {
	rng *rand.Rand
}

func NewGenerator(seed uint64) *Generator {
	return &Generator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Line returns one tab-separated record.
func (g *Generator) Line() string {
	c := mockCities[g.rng.IntN(len(mockCities))]
	owner := mockOwners[g.rng.IntN(len(mockOwners))]
	photoBase := g.rng.IntN(1000)

	photos := make([]string, models.PhotoCount)
	for i := range photos {
		photos[i] = fmt.Sprintf("https://img.example.com/%d-%d.jpg", photoBase, i+1)
	}

	cols := []string{
		mockTitles[g.rng.IntN(len(mockTitles))],
		mockDescriptions[g.rng.IntN(len(mockDescriptions))],
		c.name,
		fmt.Sprintf("https://img.example.com/%d-preview.jpg", photoBase),
		strings.Join(photos, listSeparator),
		strconv.FormatBool(g.rng.IntN(2) == 1),
		string(models.ListingTypes[g.rng.IntN(len(models.ListingTypes))]),
		strconv.Itoa(1 + g.rng.IntN(8)),
		strconv.Itoa(1 + g.rng.IntN(10)),
		strconv.FormatFloat(float64(100+g.rng.IntN(99900))+float64(g.rng.IntN(100))/100, 'f', 2, 64),
		g.features(),
		g.coordinates(c),
		owner.name,
		owner.email,
		fmt.Sprintf("https://img.example.com/avatar-%s.jpg", strings.ToLower(owner.name)),
		string(owner.kind),
	}
	return strings.Join(cols, "\t")
}

// features picks a non-empty subset of the vocabulary in canonical order.
func (g *Generator) features() string {
	var picked []string
	for _, f := range models.Features {
		if g.rng.IntN(2) == 1 {
			picked = append(picked, string(f))
		}
	}
	if len(picked) == 0 {
		picked = append(picked, string(models.Features[g.rng.IntN(len(models.Features))]))
	}
	return strings.Join(picked, listSeparator)
}

// coordinates jitters the city centre by up to about a kilometre.
func (g *Generator) coordinates(c city) string {
	lat := c.lat + (g.rng.Float64()-0.5)*0.02
	lng := c.lng + (g.rng.Float64()-0.5)*0.02
	return strconv.FormatFloat(lat, 'f', 6, 64) + "," + strconv.FormatFloat(lng, 'f', 6, 64)
}

// Write emits n lines to w.
func (g *Generator) Write(w io.Writer, n int) error {
	bw := bufio.NewWriter(w)
	for i := 0; i < n; i++ {
		if _, err := bw.WriteString(g.Line() + "\n"); err != nil {
			return fmt.Errorf("generate: write line %d: %w", i+1, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("generate: flush: %w", err)
	}
	return nil
}
