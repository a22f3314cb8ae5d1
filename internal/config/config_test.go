package config

import (
	"testing"

	"github.com/ullaszensar/mealtrackpro/internal/domain"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("MEAL_TYPES", "")
	t.Setenv("MEAL_CUTOFF_HOUR", "")
	t.Setenv("MEAL_TIMEZONE", "UTC")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Store.Driver != StoreMemory {
		t.Fatalf("expected memory driver got %s", cfg.Store.Driver)
	}
	if cfg.Meals.CutoffHour != 22 {
		t.Fatalf("expected cutoff 22 got %d", cfg.Meals.CutoffHour)
	}
	if len(cfg.Meals.Types) != 3 || cfg.Meals.Types[0] != "breakfast" {
		t.Fatalf("unexpected meal types %v", cfg.Meals.Types)
	}
	if !cfg.Meals.EnforceUniquePerDate {
		t.Fatalf("expected uniqueness enforced by default")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]map[string]string{
		"cutoff":   {"MEAL_CUTOFF_HOUR": "24"},
		"timezone": {"MEAL_TIMEZONE": "Mars/Olympus"},
		"driver":   {"STORE_DRIVER": "mongo"},
		"postgres": {"STORE_DRIVER": "postgres", "POSTGRES_DSN": ""},
		"types":    {"MEAL_TYPES": " , "},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("MEAL_TIMEZONE", "UTC")
			for k, v := range env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %v", env)
			}
		})
	}
}

func TestParseMealTypes(t *testing.T) {
	got, err := ParseMealTypes("Breakfast, lunch,tea,dinner, supper")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := []domain.MealType{"breakfast", "lunch", "tea", "dinner", "supper"}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("position %d: got %s want %s", i, got[i], want[i])
		}
	}
	if _, err := ParseMealTypes("lunch,lunch"); err == nil {
		t.Fatalf("expected duplicate error")
	}
}
