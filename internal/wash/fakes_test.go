package wash

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fakeStore struct {
	headers       map[string]FulfillmentHeader
	lookupErr     error
	types         map[string]string
	typeErr       error
	sourceLines   map[string][]SourceLine
	sourceErr     error
	shipments     map[string][]ShipmentLine
	shipmentErr   error
	panicOnLookup bool

	sourceCalls   int
	shipmentCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		headers:     make(map[string]FulfillmentHeader),
		types:       make(map[string]string),
		sourceLines: make(map[string][]SourceLine),
		shipments:   make(map[string][]ShipmentLine),
	}
}

func (s *fakeStore) LookupFulfillment(_ context.Context, id string) (FulfillmentHeader, error) {
	if s.panicOnLookup {
		panic("lookup exploded")
	}
	if s.lookupErr != nil {
		return FulfillmentHeader{}, s.lookupErr
	}
	h, ok := s.headers[id]
	if !ok {
		return FulfillmentHeader{}, ErrRecordNotFound
	}
	return h, nil
}

func (s *fakeStore) RecordTypeOf(_ context.Context, id string) (string, error) {
	if s.typeErr != nil {
		return "", s.typeErr
	}
	t, ok := s.types[id]
	if !ok {
		return "", ErrRecordNotFound
	}
	return t, nil
}

func (s *fakeStore) LoadSourceLines(_ context.Context, sourceID string) ([]SourceLine, error) {
	s.sourceCalls++
	if s.sourceErr != nil {
		return nil, s.sourceErr
	}
	lines, ok := s.sourceLines[sourceID]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return lines, nil
}

func (s *fakeStore) LoadShipmentLines(_ context.Context, id string) ([]ShipmentLine, error) {
	s.shipmentCalls++
	if s.shipmentErr != nil {
		return nil, s.shipmentErr
	}
	return s.shipments[id], nil
}

type fakeInventory struct {
	states map[stockKey]InventoryState
	err    error
	calls  map[stockKey]int
}

func newFakeInventory() *fakeInventory {
	return &fakeInventory{states: make(map[stockKey]InventoryState), calls: make(map[stockKey]int)}
}

func (f *fakeInventory) set(item, location, avg, onHand string) {
	f.states[stockKey{item, location}] = InventoryState{AverageCost: dec(avg), QuantityOnHand: dec(onHand)}
}

func (f *fakeInventory) InventoryState(_ context.Context, item, location string) (InventoryState, error) {
	key := stockKey{item, location}
	f.calls[key]++
	if f.err != nil {
		return InventoryState{}, f.err
	}
	state, ok := f.states[key]
	if !ok {
		return InventoryState{}, ErrStockNotFound
	}
	return state, nil
}

func (f *fakeInventory) totalCalls() int {
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

// fakeLedger stands in for the adjustment store: it both finds and writes.
type fakeLedger struct {
	memos     []string
	docs      []AdjustmentDocument
	findErr   error
	createErr error
	issues    []DetailIssue
	findCalls int
}

func (l *fakeLedger) FindAdjustmentMemos(_ context.Context, _ string) ([]string, error) {
	l.findCalls++
	if l.findErr != nil {
		return nil, l.findErr
	}
	return append([]string(nil), l.memos...), nil
}

func (l *fakeLedger) CreateAdjustment(_ context.Context, doc AdjustmentDocument) (PostedAdjustment, error) {
	if l.createErr != nil {
		return PostedAdjustment{}, l.createErr
	}
	l.docs = append(l.docs, doc)
	l.memos = append(l.memos, doc.Memo)
	return PostedAdjustment{ID: "ADJ-" + doc.SourceID, DetailIssues: l.issues}, nil
}

type fakeLocker struct {
	keys     []string
	err      error
	released int
}

func (l *fakeLocker) Lock(_ context.Context, key string, _ time.Duration) (func(context.Context) error, error) {
	l.keys = append(l.keys, key)
	if l.err != nil {
		return nil, l.err
	}
	return func(context.Context) error {
		l.released++
		return nil
	}, nil
}

type observed struct {
	reason  string
	created bool
	results int
}

type fakeRecorder struct {
	outcomes []observed
}

func (r *fakeRecorder) ObserveOutcome(reason string, created bool, results int) {
	r.outcomes = append(r.outcomes, observed{reason, created, results})
}

type auditEntry struct {
	recordID string
	action   string
	meta     map[string]any
}

type fakeAuditor struct {
	entries []auditEntry
}

func (a *fakeAuditor) Audit(_ context.Context, recordID, action string, meta map[string]any) {
	a.entries = append(a.entries, auditEntry{recordID, action, meta})
}

func (a *fakeAuditor) actions() []string {
	out := make([]string, 0, len(a.entries))
	for _, e := range a.entries {
		out = append(out, e.action)
	}
	return out
}

type fixture struct {
	store     *fakeStore
	inventory *fakeInventory
	ledger    *fakeLedger
	locker    *fakeLocker
	recorder  *fakeRecorder
	auditor   *fakeAuditor
	settings  StaticSettings
}

// newFixture seeds fulfillment 2001, shipped from return VRA-1, with one line
// of item A x10 at L1 returned at 12 against an average of 10.
func newFixture() *fixture {
	f := &fixture{
		store:     newFakeStore(),
		inventory: newFakeInventory(),
		ledger:    &fakeLedger{},
		locker:    &fakeLocker{},
		recorder:  &fakeRecorder{},
		auditor:   &fakeAuditor{},
		settings:  StaticSettings{AdjustmentAccount: "5100", HoldingLocation: "99"},
	}
	f.store.headers["2001"] = FulfillmentHeader{ID: "2001", StatusValue: "ItemShip:C", StatusText: "Shipped", CreatedFrom: "VRA-1", Subsidiary: "1"}
	f.store.types["VRA-1"] = SourceRecordType
	f.store.sourceLines["VRA-1"] = []SourceLine{{LineID: "5", LineUniqueKey: "k-5", Rate: "12"}}
	f.store.shipments["2001"] = []ShipmentLine{{Item: "A", Quantity: dec("10"), Location: "L1", OrderLine: "5", LineUniqueKey: "k-5", ItemType: "InvtPart"}}
	f.inventory.set("A", "L1", "10", "50")
	return f
}

func (f *fixture) service() *Service {
	return NewService(Deps{
		Store:     f.store,
		Inventory: f.inventory,
		Finder:    f.ledger,
		Writer:    f.ledger,
		Settings:  f.settings,
		Locker:    f.locker,
		Recorder:  f.recorder,
		Auditor:   f.auditor,
		Logger:    discardLogger(),
	}, time.Second)
}
