package family

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"familyroom/internal/store"
)

var testRoles = [2]string{"Вова", "Таня"}

type sentPush struct {
	token, title, body string
	data               map[string]string
}

// captureGateway records deliveries instead of sending them.
type captureGateway struct {
	sent []sentPush
	err  error
}

func (g *captureGateway) Send(_ context.Context, token, title, body string, data map[string]string) error {
	g.sent = append(g.sent, sentPush{token: token, title: title, body: body, data: data})
	return g.err
}

func newTestService() (*Service, *captureGateway) {
	gw := &captureGateway{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(store.NewMemory(), gw, testRoles, logger), gw
}

func TestSetBalance_WritesDocumentAndHistory(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService()
	b, err := svc.SetBalance("Вова", 150.5)
	if err != nil {
		t.Fatalf("SetBalance: %v", err)
	}
	if b.Amount != 150.5 || b.UpdatedBy != "Вова" || b.UpdatedAt.IsZero() {
		t.Fatalf("balance=%+v", b)
	}

	got, err := svc.Balance("Вова")
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if got.Amount != 150.5 {
		t.Fatalf("amount=%v", got.Amount)
	}

	entries, err := svc.History(10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(entries) != 1 || entries[0].Role != "Вова" || entries[0].Amount != 150.5 {
		t.Fatalf("history=%+v", entries)
	}
}

func TestBalance_MissingDocumentReadsZero(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService()
	b, err := svc.Balance("Таня")
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if b.Amount != 0 || b.Role != "Таня" {
		t.Fatalf("balance=%+v", b)
	}
}

func TestBalances_Total(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService()
	svc.SetBalance("Вова", 100)
	svc.SetBalance("Таня", 250)

	sum, err := svc.Balances()
	if err != nil {
		t.Fatalf("Balances: %v", err)
	}
	if sum.Total != 350 || len(sum.Balances) != 2 {
		t.Fatalf("summary=%+v", sum)
	}
}

func TestHistory_NewestFirst(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService()
	svc.SetBalance("Вова", 1)
	svc.SetBalance("Таня", 2)
	svc.SetBalance("Вова", 3)

	entries, err := svc.History(2)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len=%d", len(entries))
	}
	if entries[0].Amount != 3 || entries[1].Amount != 2 {
		t.Fatalf("entries=%+v", entries)
	}
}

func TestSettings_CreatedWithDefaults(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService()
	s, err := svc.Settings("Вова")
	if err != nil {
		t.Fatalf("Settings: %v", err)
	}
	if s.NotificationTime != DefaultNotificationTime || s.HomeRadius != DefaultHomeRadius {
		t.Fatalf("settings=%+v", s)
	}
}

func TestUpdateSettings_PartialMerge(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService()
	radius := 200
	s, err := svc.UpdateSettings("Вова", SettingsPatch{HomeRadius: &radius})
	if err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}
	if s.HomeRadius != 200 || s.NotificationTime != DefaultNotificationTime {
		t.Fatalf("settings=%+v", s)
	}

	again, _ := svc.Settings("Вова")
	if again.HomeRadius != 200 {
		t.Fatalf("patch not persisted: %+v", again)
	}
}

func TestPartnerRole(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService()
	if p, err := svc.PartnerRole("Вова"); err != nil || p != "Таня" {
		t.Fatalf("partner=%q err=%v", p, err)
	}
	if p, err := svc.PartnerRole("Таня"); err != nil || p != "Вова" {
		t.Fatalf("partner=%q err=%v", p, err)
	}
	if _, err := svc.PartnerRole("Петя"); !errors.Is(err, ErrUnknownRole) {
		t.Fatalf("err=%v, want ErrUnknownRole", err)
	}
}

func TestUnknownRoleRejectedEverywhere(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService()
	if _, err := svc.SetBalance("Петя", 1); !errors.Is(err, ErrUnknownRole) {
		t.Fatalf("SetBalance err=%v", err)
	}
	if _, err := svc.Balance("Петя"); !errors.Is(err, ErrUnknownRole) {
		t.Fatalf("Balance err=%v", err)
	}
	if _, err := svc.Settings("Петя"); !errors.Is(err, ErrUnknownRole) {
		t.Fatalf("Settings err=%v", err)
	}
	if _, err := svc.WatchBalance("Петя"); !errors.Is(err, ErrUnknownRole) {
		t.Fatalf("WatchBalance err=%v", err)
	}
}

func TestWatchBalance_DeliversUpdates(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService()
	sub, err := svc.WatchBalance("Вова")
	if err != nil {
		t.Fatalf("WatchBalance: %v", err)
	}
	defer sub.Cancel()

	svc.SetBalance("Вова", 77)
	doc := <-sub.C
	if doc["amount"] != 77.0 {
		t.Fatalf("doc=%v", doc)
	}
}

func TestNotify_DeliversToRegisteredToken(t *testing.T) {
	t.Parallel()

	svc, gw := newTestService()
	if err := svc.RegisterToken("Таня", "device-token-1"); err != nil {
		t.Fatalf("RegisterToken: %v", err)
	}

	err := svc.Notify(context.Background(), "Таня", "Баланс", "обновлён", map[string]string{"kind": "balance"})
	if err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(gw.sent) != 1 {
		t.Fatalf("sent=%d", len(gw.sent))
	}
	got := gw.sent[0]
	if got.token != "device-token-1" || got.title != "Баланс" || got.data["kind"] != "balance" {
		t.Fatalf("sent=%+v", got)
	}
}

func TestNotify_NoTokenIsBestEffort(t *testing.T) {
	t.Parallel()

	svc, gw := newTestService()
	if err := svc.Notify(context.Background(), "Вова", "t", "b", nil); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(gw.sent) != 0 {
		t.Fatalf("sent=%d, want 0", len(gw.sent))
	}
}

func TestNotify_GatewayFailureSwallowed(t *testing.T) {
	t.Parallel()

	svc, gw := newTestService()
	gw.err = errors.New("gateway down")
	svc.RegisterToken("Вова", "tok")

	if err := svc.Notify(context.Background(), "Вова", "t", "b", nil); err != nil {
		t.Fatalf("Notify: %v", err)
	}
}
