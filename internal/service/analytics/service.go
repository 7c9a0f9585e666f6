// Package analytics computes the descriptive aggregates behind the chart
// pages: monthly groupings split domestic/international, ratio cards,
// revenue sums and a short linear forecast.
package analytics

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/YeJunlin777/yachts-system/internal/domain"
)

// OrderLister yields the orders to aggregate.
type OrderLister interface {
	List() []domain.Order
}

// Service computes chart aggregates.
type Service struct {
	orders OrderLister
	logger *slog.Logger
}

// New constructs a Service.
func New(orders OrderLister, logger *slog.Logger) Service {
	return Service{orders: orders, logger: logger}
}

// Series is a monthly count split by region, one value per label.
type Series struct {
	Labels        []string `json:"labels"`
	Domestic      []int    `json:"domestic"`
	International []int    `json:"international"`
}

// RevenueSeries is a monthly revenue sum, one value per label.
type RevenueSeries struct {
	Labels  []string  `json:"labels"`
	Amounts []float64 `json:"amounts"`
}

// ServiceRevenue groups revenue by charter service.
type ServiceRevenue struct {
	ServiceName string  `json:"serviceName"`
	Orders      int     `json:"orders"`
	Amount      float64 `json:"amount"`
}

// Summary backs the stat cards at the top of the analytics page.
type Summary struct {
	TotalOrders        int     `json:"totalOrders"`
	TotalCustomers     int     `json:"totalCustomers"`
	TotalRevenue       float64 `json:"totalRevenue"`
	InternationalRatio float64 `json:"internationalRatio"` // percent, 0-100
}

// Forecast extends a monthly total with a least-squares linear projection.
type Forecast struct {
	Labels    []string  `json:"labels"`
	Observed  []float64 `json:"observed"`
	Projected []float64 `json:"projected"`
}

// Summary aggregates the whole order book.
func (s Service) Summary(_ context.Context) Summary {
	var out Summary
	var international int
	for _, o := range s.orders.List() {
		out.TotalOrders++
		out.TotalCustomers += o.TouristCount
		out.TotalRevenue += o.Amount
		if o.Region == domain.RegionInternational {
			international++
		}
	}
	if out.TotalOrders > 0 {
		out.InternationalRatio = float64(international) / float64(out.TotalOrders) * 100
	}
	return out
}

// OrderMonthly counts orders per month split by region.
func (s Service) OrderMonthly(_ context.Context) Series {
	return s.monthlyCounts(func(o domain.Order) int { return 1 })
}

// CustomerMonthly counts tourists per month split by region.
func (s Service) CustomerMonthly(_ context.Context) Series {
	return s.monthlyCounts(func(o domain.Order) int { return o.TouristCount })
}

// RevenueMonthly sums order amounts per month.
func (s Service) RevenueMonthly(_ context.Context) RevenueSeries {
	labels := s.labelRange()
	amounts := make([]float64, len(labels))
	index := indexOf(labels)
	for _, o := range s.orders.List() {
		if i, ok := index[monthKey(o.OrderTime)]; ok {
			amounts[i] += o.Amount
		}
	}
	return RevenueSeries{Labels: labels, Amounts: amounts}
}

// RevenueByService groups revenue by charter service, largest first.
func (s Service) RevenueByService(_ context.Context) []ServiceRevenue {
	grouped := make(map[string]*ServiceRevenue)
	for _, o := range s.orders.List() {
		g, ok := grouped[o.ServiceName]
		if !ok {
			g = &ServiceRevenue{ServiceName: o.ServiceName}
			grouped[o.ServiceName] = g
		}
		g.Orders++
		g.Amount += o.Amount
	}
	out := make([]ServiceRevenue, 0, len(grouped))
	for _, g := range grouped {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Amount > out[j].Amount })
	return out
}

// RevenueForecast projects monthly revenue `months` periods ahead with a
// least-squares line fitted to the observed series.
func (s Service) RevenueForecast(ctx context.Context, months int) Forecast {
	observed := s.RevenueMonthly(ctx)
	labels := append([]string(nil), observed.Labels...)
	projected := make([]float64, 0, months)

	slope, intercept := linearFit(observed.Amounts)
	n := len(observed.Amounts)
	last := lastMonth(observed.Labels)
	for i := 1; i <= months; i++ {
		value := intercept + slope*float64(n-1+i)
		if value < 0 {
			value = 0
		}
		projected = append(projected, value)
		last = last.AddDate(0, 1, 0)
		labels = append(labels, monthKey(last))
	}
	return Forecast{Labels: labels, Observed: observed.Amounts, Projected: projected}
}

func (s Service) monthlyCounts(weight func(domain.Order) int) Series {
	labels := s.labelRange()
	domestic := make([]int, len(labels))
	international := make([]int, len(labels))
	index := indexOf(labels)
	for _, o := range s.orders.List() {
		i, ok := index[monthKey(o.OrderTime)]
		if !ok {
			continue
		}
		if o.Region == domain.RegionInternational {
			international[i] += weight(o)
		} else {
			domestic[i] += weight(o)
		}
	}
	return Series{Labels: labels, Domestic: domestic, International: international}
}

// labelRange returns every month between the earliest and latest order,
// inclusive, so chart axes have no gaps.
func (s Service) labelRange() []string {
	orders := s.orders.List()
	if len(orders) == 0 {
		return nil
	}
	min, max := orders[0].OrderTime, orders[0].OrderTime
	for _, o := range orders {
		if o.OrderTime.Before(min) {
			min = o.OrderTime
		}
		if o.OrderTime.After(max) {
			max = o.OrderTime
		}
	}
	var labels []string
	cursor := time.Date(min.Year(), min.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(max.Year(), max.Month(), 1, 0, 0, 0, 0, time.UTC)
	for !cursor.After(end) {
		labels = append(labels, monthKey(cursor))
		cursor = cursor.AddDate(0, 1, 0)
	}
	return labels
}

func monthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

func indexOf(labels []string) map[string]int {
	index := make(map[string]int, len(labels))
	for i, l := range labels {
		index[l] = i
	}
	return index
}

func lastMonth(labels []string) time.Time {
	if len(labels) == 0 {
		return time.Now().UTC()
	}
	t, err := time.Parse("2006-01", labels[len(labels)-1])
	if err != nil {
		return time.Now().UTC()
	}
	return t
}

// linearFit returns slope and intercept of the least-squares line through
// (0, ys[0])..(n-1, ys[n-1]). A series shorter than two points yields a
// flat line.
func linearFit(ys []float64) (slope, intercept float64) {
	n := float64(len(ys))
	if len(ys) == 0 {
		return 0, 0
	}
	if len(ys) == 1 {
		return 0, ys[0]
	}
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range ys {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0, sumY / n
	}
	slope = (n*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / n
	return slope, intercept
}
