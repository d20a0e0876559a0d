package httpapi

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/kthyng/ocean-data-gateway/internal/federation"
	"github.com/kthyng/ocean-data-gateway/internal/vocab"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, coord *federation.Coordinator, vocabulary *vocab.Table) {
	v1 := app.Group("/api/v1")

	v1.Get("/search", func(c *fiber.Ctx) error {
		var req searchQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		result, err := coord.Federate(c.Context(), req.toQuery())
		if err != nil {
			if errors.Is(err, federation.ErrInvalidQuery) {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			return fiber.NewError(fiber.StatusInternalServerError, "federation failed")
		}

		return c.JSON(result)
	})

	v1.Get("/sources", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"sources": coord.Sources()})
	})

	v1.Get("/variables", func(c *fiber.Ctx) error {
		term := c.Query("q")
		if term == "" {
			return c.JSON(fiber.Map{"variables": vocabulary.Names()})
		}
		return c.JSON(fiber.Map{"variables": vocabulary.Search(term)})
	})

	v1.Delete("/cache", func(c *fiber.Ctx) error {
		if err := coord.ClearCache(c.Context()); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to clear cache")
		}
		return c.JSON(fiber.Map{"cleared": true})
	})

	v1.Delete("/cache/:fingerprint", func(c *fiber.Ctx) error {
		fp := c.Params("fingerprint")
		if err := coord.Invalidate(c.Context(), fp); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to invalidate cache entry")
		}
		return c.JSON(fiber.Map{"invalidated": fp})
	})
}

// searchQuery holds the bound and validated search parameters.
type searchQuery struct {
	MinLat float64 `validate:"gte=-90,lte=90"`
	MaxLat float64 `validate:"gte=-90,lte=90,gtefield=MinLat"`
	MinLon float64 `validate:"gte=-180,lte=180"`
	MaxLon float64 `validate:"gte=-180,lte=180,gtefield=MinLon"`
	Start  time.Time
	End    time.Time

	Variables []string
	Keywords  []string
	Stations  []string
	Sources   []string
}

func (s *searchQuery) bind(c *fiber.Ctx) error {
	var err error
	if s.MinLat, err = parseFloat(c.Query("min_lat")); err != nil {
		return errors.New("min_lat must be a number")
	}
	if s.MaxLat, err = parseFloat(c.Query("max_lat")); err != nil {
		return errors.New("max_lat must be a number")
	}
	if s.MinLon, err = parseFloat(c.Query("min_lon")); err != nil {
		return errors.New("min_lon must be a number")
	}
	if s.MaxLon, err = parseFloat(c.Query("max_lon")); err != nil {
		return errors.New("max_lon must be a number")
	}

	startStr, endStr := c.Query("start"), c.Query("end")
	if startStr == "" || endStr == "" {
		return errors.New("start and end query parameters are required")
	}
	if s.Start, err = parseTime(startStr); err != nil {
		return err
	}
	if s.End, err = parseTime(endStr); err != nil {
		return err
	}

	s.Variables = splitCSV(c.Query("variables"))
	s.Keywords = splitCSV(c.Query("keywords"))
	s.Stations = splitCSV(c.Query("stations"))
	s.Sources = splitCSV(c.Query("sources"))

	return validate.Struct(s)
}

func (s *searchQuery) toQuery() federation.NormalizedQuery {
	return federation.NormalizedQuery{
		Region: federation.BoundingBox{
			MinLat: s.MinLat,
			MaxLat: s.MaxLat,
			MinLon: s.MinLon,
			MaxLon: s.MaxLon,
		},
		Window: federation.TimeRange{
			Start: s.Start,
			End:   s.End,
		},
		Variables:  s.Variables,
		Keywords:   s.Keywords,
		StationIDs: s.Stations,
		Sources:    s.Sources,
	}
}

func parseFloat(s string) (float64, error) {
	if s == "" {
		return 0, errors.New("missing value")
	}
	return strconv.ParseFloat(s, 64)
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
