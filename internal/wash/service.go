package wash

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/odyssey-erp/costwash/internal/shared"
)

// DefaultLockTTL bounds how long one run holds the record lock.
const DefaultLockTTL = 30 * time.Second

// Deps groups the collaborators of Service. Locker, Recorder and Auditor are optional.
type Deps struct {
	Store     RecordStore
	Inventory InventorySearch
	Finder    AdjustmentFinder
	Writer    AdjustmentWriter
	Settings  SettingsProvider
	Locker    Locker
	Recorder  Recorder
	Auditor   Auditor
	Logger    *slog.Logger
}

// Service runs the cost variance wash for one fulfillment event at a time.
type Service struct {
	store    RecordStore
	search   InventorySearch
	settings SettingsProvider
	locker   Locker
	lockTTL  time.Duration
	recorder Recorder
	resolver *RateResolver
	guard    *IdempotencyGuard
	builder  *AdjustmentBuilder
	trail    auditTrail
	logger   *slog.Logger
}

// NewService wires a Service. lockTTL falls back to DefaultLockTTL.
func NewService(deps Deps, lockTTL time.Duration) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if lockTTL <= 0 {
		lockTTL = DefaultLockTTL
	}
	return &Service{
		store:    deps.Store,
		search:   deps.Inventory,
		settings: deps.Settings,
		locker:   deps.Locker,
		lockTTL:  lockTTL,
		recorder: deps.Recorder,
		resolver: NewRateResolver(deps.Store, logger),
		guard:    NewIdempotencyGuard(deps.Finder, logger),
		builder:  NewAdjustmentBuilder(deps.Writer, logger, deps.Auditor),
		trail:    auditTrail{logger: logger, auditor: deps.Auditor},
		logger:   logger,
	}
}

func (s *Service) audit(ctx context.Context, recordID, action string, meta map[string]any) {
	s.trail.note(ctx, recordID, action, meta)
}

// Run evaluates ev and posts at most one wash adjustment. It never returns an
// error and never panics; the Outcome carries the decision.
func (s *Service) Run(ctx context.Context, ev Event) (out Outcome) {
	out.RecordID = ev.RecordID
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("wash: run panicked", slog.String("record_id", ev.RecordID), slog.Any("panic", r))
			out = Outcome{RecordID: ev.RecordID, Reason: SkipFailed}
		}
		if s.recorder != nil {
			s.recorder.ObserveOutcome(string(out.Reason), out.Created, len(out.Results))
		}
	}()

	s.logger.Debug("wash: started", slog.String("record_id", ev.RecordID), slog.String("event_type", string(ev.Type)))
	if ev.Type == EventDelete {
		out.Reason = SkipDeleteEvent
		return out
	}

	header, err := s.store.LookupFulfillment(ctx, ev.RecordID)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			s.logger.Debug("wash: skipping, fulfillment not found", slog.String("record_id", ev.RecordID))
			out.Reason = SkipNotFound
			return out
		}
		s.logger.Error("wash: lookup fulfillment", slog.String("record_id", ev.RecordID), slog.Any("error", err))
		out.Reason = SkipFailed
		return out
	}
	s.logger.Debug("wash: context",
		slog.String("record_id", ev.RecordID),
		slog.String("created_from", header.CreatedFrom),
		slog.String("status_value", header.StatusValue),
		slog.String("status_text", header.StatusText),
	)
	if header.CreatedFrom == "" {
		out.Reason = SkipNoCreatedFrom
		return out
	}

	settings, err := s.settings.Settings(ctx)
	if err != nil || !settings.Complete() {
		s.logger.Error("wash: config error, adjustment account or holding location missing",
			slog.String("record_id", ev.RecordID), slog.Any("error", err))
		out.Reason = SkipConfigMissing
		return out
	}

	sourceType, err := s.store.RecordTypeOf(ctx, header.CreatedFrom)
	if err != nil && !errors.Is(err, ErrRecordNotFound) {
		s.logger.Error("wash: lookup source type", slog.String("source_id", header.CreatedFrom), slog.Any("error", err))
		out.Reason = SkipFailed
		return out
	}
	if sourceType != SourceRecordType {
		s.logger.Debug("wash: skipping, source is not a vendor return authorization",
			slog.String("record_id", ev.RecordID), slog.String("source_type", sourceType))
		out.Reason = SkipWrongSource
		return out
	}

	if !IsShipped(header) {
		s.logger.Debug("wash: skipping, status is not shipped",
			slog.String("record_id", ev.RecordID),
			slog.String("status", header.StatusValue+"/"+header.StatusText))
		out.Reason = SkipNotShipped
		return out
	}

	if release := s.lock(ctx, ev.RecordID); release != nil {
		defer release()
	}

	if s.guard.Exists(ctx, ev.RecordID) {
		s.audit(ctx, ev.RecordID, "duplicate_skipped", map[string]any{"memo": Memo(ev.RecordID)})
		out.Reason = SkipDuplicate
		return out
	}

	rates := s.resolver.Resolve(ctx, header.CreatedFrom)
	lines, err := s.store.LoadShipmentLines(ctx, ev.RecordID)
	if err != nil {
		s.logger.Error("wash: load shipment lines", slog.String("record_id", ev.RecordID), slog.Any("error", err))
		lines = nil
	}

	stock := newStockProvider(s.search, s.logger)
	eval := s.evaluateLines(ctx, ev.RecordID, lines, rates, stock, settings.HoldingLocation)
	out.Skipped = eval.skipped
	if len(eval.results) == 0 {
		s.logger.Debug("wash: nothing to wash", slog.String("record_id", ev.RecordID), slog.Int("lines", len(lines)))
		out.Reason = SkipNoResults
		return out
	}
	out.Results = eval.results

	doc := s.builder.Build(eval.results, settings.AdjustmentAccount, header.Subsidiary, ev.RecordID)
	id, err := s.builder.Persist(ctx, doc)
	if err != nil {
		if errors.Is(err, ErrDuplicateAdjustment) {
			s.audit(ctx, ev.RecordID, "duplicate_skipped", map[string]any{"memo": doc.Memo, "stage": "persist"})
			out.Reason = SkipDuplicate
			return out
		}
		s.logger.Error("wash: persist adjustment", slog.String("record_id", ev.RecordID), slog.Any("error", err))
		out.Reason = SkipFailed
		return out
	}
	out.Created = true
	out.AdjustmentID = id
	return out
}

// lock takes the record lock when a Locker is configured. Failing to get it is
// logged and the run continues without it.
func (s *Service) lock(ctx context.Context, recordID string) func() {
	if s.locker == nil {
		return nil
	}
	release, err := s.locker.Lock(ctx, shared.WashLockKey(recordID), s.lockTTL)
	if err != nil {
		s.logger.Warn("wash: record lock", slog.String("record_id", recordID), slog.Any("error", err))
		return nil
	}
	return func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("wash: release record lock", slog.String("record_id", recordID), slog.Any("error", err))
		}
	}
}
