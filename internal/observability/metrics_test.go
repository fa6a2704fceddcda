package observability

import (
	"context"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"token-launchpad/internal/domain"
)

func TestMetrics_PublishTrade(t *testing.T) {
	m := NewMetricsWith(prometheus.NewRegistry(), "test")

	var market domain.Account
	market[0] = 1
	trade := &domain.Trade{
		Market:       market,
		Seq:          1,
		Side:         domain.TradeSideBuy,
		Trader:       market,
		Beneficiary:  market,
		BaseAmount:   sdkmath.NewInt(3).Mul(domain.Unit),
		TokenAmount:  sdkmath.NewInt(30).Mul(domain.Unit),
		Price:        domain.Unit.QuoRaw(10),
		SupplyAfter:  sdkmath.NewInt(30).Mul(domain.Unit),
		ReserveAfter: sdkmath.NewInt(3).Mul(domain.Unit),
		Timestamp:    1234,
	}

	m.Publish(context.Background(), trade.Event())

	if got := testutil.ToFloat64(m.TradesTotal.WithLabelValues("buy")); got != 1 {
		t.Errorf("trades_total{buy}: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.BaseVolume.WithLabelValues("buy")); got != 3 {
		t.Errorf("base_volume_total{buy}: got %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.MarketSupply.WithLabelValues(market.String())); got != 30 {
		t.Errorf("supply: got %v, want 30", got)
	}
	if got := testutil.ToFloat64(m.MarketPrice.WithLabelValues(market.String())); got != 0.1 {
		t.Errorf("last_price: got %v, want 0.1", got)
	}
	if got := testutil.ToFloat64(m.LastEventTimestamp); got != 1234 {
		t.Errorf("last_event_timestamp: got %v", got)
	}
}

func TestMetrics_PublishRegistryEvents(t *testing.T) {
	m := NewMetricsWith(prometheus.NewRegistry(), "test")
	ctx := context.Background()

	m.Publish(ctx, domain.NewEvent(domain.EventRequestSubmitted, "r", 1))
	m.Publish(ctx, domain.NewEvent(domain.EventRequestApproved, "r", 2))
	m.Publish(ctx, domain.NewEvent(domain.EventRequestApproved, "r", 3))
	m.Publish(ctx, domain.NewEvent(domain.EventRequestIssued, "r", 4))
	m.Publish(ctx, domain.NewEvent(domain.EventThresholdChanged, "registry", 5).
		With(domain.AttrNewThreshold, "3"))

	if got := testutil.ToFloat64(m.ApprovalVotes); got != 2 {
		t.Errorf("approval_votes_total: got %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.MarketsIssued); got != 1 {
		t.Errorf("markets_issued_total: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ThresholdGauge); got != 3 {
		t.Errorf("approval_threshold: got %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.EventsRecorded); got != 5 {
		t.Errorf("published_total: got %v, want 5", got)
	}
}

func TestMetrics_HTTPAndAdmins(t *testing.T) {
	m := NewMetricsWith(prometheus.NewRegistry(), "test")

	m.RecordHTTPRequest("/v1/markets", 200, 5*time.Millisecond)
	m.SetAdminSet(domain.AdminSet{Admins: make([]domain.Account, 3), Threshold: 2})

	if got := testutil.ToFloat64(m.HTTPRequests.WithLabelValues("/v1/markets", "200")); got != 1 {
		t.Errorf("requests_total: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.AdminCountGauge); got != 3 {
		t.Errorf("admins: got %v, want 3", got)
	}
}

func TestUnits(t *testing.T) {
	if got := Units(domain.Unit.MulRaw(5).QuoRaw(2)); got != 2.5 {
		t.Errorf("Units: got %v, want 2.5", got)
	}
	if got := Units(sdkmath.Int{}); got != 0 {
		t.Errorf("Units(nil): got %v", got)
	}
}
