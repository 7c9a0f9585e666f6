package analytics

import (
	"context"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/YeJunlin777/yachts-system/internal/domain"
)

type stubOrders []domain.Order

func (s stubOrders) List() []domain.Order { return s }

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func order(region domain.Region, year int, month time.Month, amount float64, tourists int, service string) domain.Order {
	return domain.Order{
		Customer: domain.Customer{
			Region:       region,
			OrderTime:    time.Date(year, month, 10, 12, 0, 0, 0, time.UTC),
			Amount:       amount,
			TouristCount: tourists,
			ServiceName:  service,
		},
		Status: domain.OrderStatusApproved,
	}
}

func TestSummary(t *testing.T) {
	svc := New(stubOrders{
		order(domain.RegionDomestic, 2025, time.January, 1000, 2, "A"),
		order(domain.RegionDomestic, 2025, time.February, 2000, 3, "A"),
		order(domain.RegionInternational, 2025, time.March, 3000, 1, "B"),
		order(domain.RegionInternational, 2025, time.April, 4000, 4, "B"),
	}, newLogger())

	got := svc.Summary(context.Background())
	if got.TotalOrders != 4 {
		t.Fatalf("orders: %d", got.TotalOrders)
	}
	if got.TotalCustomers != 10 {
		t.Fatalf("customers: %d", got.TotalCustomers)
	}
	if got.TotalRevenue != 10000 {
		t.Fatalf("revenue: %f", got.TotalRevenue)
	}
	if got.InternationalRatio != 50 {
		t.Fatalf("ratio: %f", got.InternationalRatio)
	}
}

func TestSummaryEmpty(t *testing.T) {
	got := New(stubOrders{}, newLogger()).Summary(context.Background())
	if got.TotalOrders != 0 || got.InternationalRatio != 0 {
		t.Fatalf("expected zero summary, got %+v", got)
	}
}

func TestOrderMonthlyFillsGaps(t *testing.T) {
	svc := New(stubOrders{
		order(domain.RegionDomestic, 2025, time.January, 1000, 1, "A"),
		order(domain.RegionInternational, 2025, time.April, 1000, 1, "A"),
	}, newLogger())

	series := svc.OrderMonthly(context.Background())
	want := []string{"2025-01", "2025-02", "2025-03", "2025-04"}
	if len(series.Labels) != len(want) {
		t.Fatalf("labels: %v", series.Labels)
	}
	for i, l := range want {
		if series.Labels[i] != l {
			t.Fatalf("label %d = %s, want %s", i, series.Labels[i], l)
		}
	}
	if series.Domestic[0] != 1 || series.International[3] != 1 {
		t.Fatalf("counts misplaced: %+v", series)
	}
	if series.Domestic[1] != 0 || series.International[1] != 0 {
		t.Fatalf("gap months must be zero: %+v", series)
	}
}

func TestCustomerMonthlyWeightsTourists(t *testing.T) {
	svc := New(stubOrders{
		order(domain.RegionDomestic, 2025, time.May, 1000, 5, "A"),
		order(domain.RegionDomestic, 2025, time.May, 1000, 2, "A"),
	}, newLogger())

	series := svc.CustomerMonthly(context.Background())
	if len(series.Domestic) != 1 || series.Domestic[0] != 7 {
		t.Fatalf("expected 7 tourists in one month: %+v", series)
	}
}

func TestRevenueByService(t *testing.T) {
	svc := New(stubOrders{
		order(domain.RegionDomestic, 2025, time.May, 1000, 1, "Fishing"),
		order(domain.RegionDomestic, 2025, time.May, 5000, 1, "Dinner Cruise"),
		order(domain.RegionDomestic, 2025, time.June, 2000, 1, "Fishing"),
	}, newLogger())

	grouped := svc.RevenueByService(context.Background())
	if len(grouped) != 2 {
		t.Fatalf("expected 2 services, got %d", len(grouped))
	}
	if grouped[0].ServiceName != "Dinner Cruise" || grouped[0].Amount != 5000 {
		t.Fatalf("expected largest first: %+v", grouped)
	}
	if grouped[1].Orders != 2 || grouped[1].Amount != 3000 {
		t.Fatalf("fishing rollup wrong: %+v", grouped[1])
	}
}

func TestRevenueForecastLinearTrend(t *testing.T) {
	// Revenue grows by exactly 100 each month; the fit must continue it.
	svc := New(stubOrders{
		order(domain.RegionDomestic, 2025, time.January, 100, 1, "A"),
		order(domain.RegionDomestic, 2025, time.February, 200, 1, "A"),
		order(domain.RegionDomestic, 2025, time.March, 300, 1, "A"),
	}, newLogger())

	forecast := svc.RevenueForecast(context.Background(), 2)
	if len(forecast.Projected) != 2 {
		t.Fatalf("projected: %v", forecast.Projected)
	}
	if math.Abs(forecast.Projected[0]-400) > 1e-6 || math.Abs(forecast.Projected[1]-500) > 1e-6 {
		t.Fatalf("expected 400, 500, got %v", forecast.Projected)
	}
	if forecast.Labels[len(forecast.Labels)-1] != "2025-05" {
		t.Fatalf("labels must extend the range: %v", forecast.Labels)
	}
}

func TestLinearFitDegenerateSeries(t *testing.T) {
	if slope, intercept := linearFit(nil); slope != 0 || intercept != 0 {
		t.Fatalf("empty series: %f %f", slope, intercept)
	}
	if slope, intercept := linearFit([]float64{42}); slope != 0 || intercept != 42 {
		t.Fatalf("single point: %f %f", slope, intercept)
	}
}
