package simulation

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dukerupert/benefitform/internal/model"
)

const testMonth model.Period = "2026-10"

func TestCalculate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/calculate" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), `"ETERNITY"`) {
			t.Errorf("request missing ETERNITY sentinel: %s", body)
		}

		var h model.Household
		if err := json.Unmarshal(body, &h); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		h.Units[model.DefaultUnit].Benefits[model.BenefitChildAllowance] = model.PeriodValues{testMonth: model.Number(10000)}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(h)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL}, slog.Default())
	res, err := c.Calculate(context.Background(), model.NewHousehold(testMonth))
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}

	got := res.Household.Units[model.DefaultUnit].Benefits[model.BenefitChildAllowance][testMonth]
	if !got.Equal(model.Number(10000)) {
		t.Errorf("児童手当 = %v, want 10000", got)
	}
	if res.Status != http.StatusOK {
		t.Errorf("status = %d", res.Status)
	}
	if len(res.Request) == 0 || len(res.Response) == 0 {
		t.Error("expected raw exchange to be kept")
	}
}

func TestCalculateRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": {"世帯員": "invalid"}}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL}, slog.Default())
	res, err := c.Calculate(context.Background(), model.NewHousehold(testMonth))

	if !errors.Is(err, ErrRejected) {
		t.Fatalf("err = %v, want ErrRejected", err)
	}
	if res.Status != http.StatusBadRequest {
		t.Errorf("status = %d", res.Status)
	}
}
