// Package validation orchestrates rule evaluation into a bid validation
// verdict, with a time-bucketed result cache for idempotent resubmissions.
package validation

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/openlot/settlement/internal/adapters/events"
	"github.com/openlot/settlement/internal/adapters/repository"
	"github.com/openlot/settlement/internal/domain/model"
	"github.com/openlot/settlement/internal/domain/rules"
	"github.com/openlot/settlement/pkg/logger"
	"github.com/openlot/settlement/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultCacheTTL = time.Minute
	fullScore       = 100
)

// Evaluator abstracts the rule engine the service orchestrates.
type Evaluator interface {
	// Evaluate returns one result per registered rule, in registration order.
	Evaluate(ctx context.Context, req model.BidValidationRequest) []model.RuleResult
}

// recommendations maps a failed rule to the remediation surfaced to callers.
var recommendations = map[string]string{
	rules.RuleMinIncrement:    "raise the bid to meet the minimum increment over the current highest bid",
	rules.RuleMaxBid:          "lower the bid below the configured maximum",
	rules.RuleUserEligibility: "contact support to restore bidding eligibility",
	rules.RuleAuctionStatus:   "wait for the auction to open or choose an active auction",
	rules.RuleTiming:          "submit the bid while the auction window is open",
	rules.RuleBalance:         "top up the account balance before bidding again",
	rules.RuleReservePrice:    "raise the bid to meet the reserve price to have a chance of winning",
	rules.RuleBidderLimit:     "withdraw an earlier bid before placing a new one",
	rules.RuleAntiSnipe:       "expect the auction close to be extended",
	rules.RuleKYC:             "complete identity verification before bidding",
	rules.RuleGeographic:      "bidding is not available in the declared region",
}

// Service validates bid requests. Safe for concurrent use.
type Service struct {
	engine Evaluator
	store  repository.Store
	bus    events.Publisher
	log    logger.Logger

	cacheEnabled bool
	cache        *resultCache
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithCacheTTL sets how long a cached verdict stays fresh.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.cache.ttl = ttl
		}
	}
}

// WithCacheDisabled turns off the validation result cache.
func WithCacheDisabled() Option {
	return func(s *Service) {
		s.cacheEnabled = false
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// New constructs a validation Service over the given rule engine, store and
// event sink.
func New(engine Evaluator, store repository.Store, bus events.Publisher, opts ...Option) *Service {
	s := &Service{
		engine:       engine,
		store:        store,
		bus:          bus,
		log:          logger.Nop(),
		cacheEnabled: true,
		cache:        newResultCache(defaultCacheTTL),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// ValidatedEvent is the payload published on validation completion.
type ValidatedEvent struct {
	Request model.BidValidationRequest `json:"request"`
	Result  model.ValidationResult     `json:"result"`
}

// Validate evaluates a bid request and returns the verdict. It never fails:
// unexpected faults surface as a CRITICAL, non-retryable result.
func (s *Service) Validate(ctx context.Context, req model.BidValidationRequest) (res model.ValidationResult) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			s.log.Error(ctx, "validation panicked",
				logger.String("auction", req.AuctionID),
				logger.Any("panic", rec),
			)
			metrics.RecordErrorByComponent("validation", "panic")
			res = criticalResult(rec, start)
		}
	}()

	if !s.cacheEnabled {
		return s.evaluate(ctx, req, start)
	}

	fp := fingerprint(req)
	if cached, ok := s.cache.lookup(fp); ok {
		metrics.RecordCacheHit()
		return cached
	}
	metrics.RecordCacheMiss()

	// Single-flight per fingerprint: a miss storm for the same bid triggers
	// one rule evaluation, duplicates receive the shared verdict.
	return s.cache.doOnce(fp, func() model.ValidationResult {
		return s.evaluate(ctx, req, start)
	})
}

// evaluate runs the rule engine and assembles the verdict.
func (s *Service) evaluate(ctx context.Context, req model.BidValidationRequest, start time.Time) model.ValidationResult {
	results := s.engine.Evaluate(ctx, req)

	errs, warns := partition(results)

	res := model.ValidationResult{
		IsValid:   len(errs) == 0,
		Score:     overallScore(results),
		Results:   results,
		Errors:    errs,
		Warnings:  warns,
		Duration:  time.Since(start),
		Timestamp: time.Now().UTC(),
	}
	if res.IsValid {
		res.Status = model.BidStatusValidated
	} else {
		res.Status = model.BidStatusRejected
	}

	if s.cacheEnabled {
		s.cache.put(fingerprint(req), res)
	}

	if err := s.store.SaveValidationResult(ctx, req, res); err != nil {
		s.log.Warn(ctx, "failed to persist validation result",
			logger.String("auction", req.AuctionID),
			logger.Error(err),
		)
	}

	if err := s.bus.Publish(ctx, events.BidValidated, ValidatedEvent{Request: req, Result: res}); err != nil {
		s.log.Warn(ctx, "failed to publish validation event", logger.Error(err))
	}

	metrics.RecordValidation(res.IsValid)
	metrics.RecordValidationScore(res.Score)
	metrics.RecordValidationDuration(float64(res.Duration.Milliseconds()))

	return res
}

// partition splits failed results into blocking errors and warnings, each
// annotated with the rule's remediation.
func partition(results []model.RuleResult) (errs, warns []model.ValidationIssue) {
	for _, r := range results {
		if r.Passed {
			continue
		}
		issue := model.ValidationIssue{
			RuleID:         r.RuleID,
			Severity:       r.Severity,
			Message:        r.Message,
			Recommendation: recommendations[r.RuleID],
		}
		switch {
		case r.Severity.Blocking():
			errs = append(errs, issue)
		case r.Severity == model.SeverityWarning:
			warns = append(warns, issue)
		}
	}
	return errs, warns
}

// overallScore is the weight of passed rules over the weight of all rules,
// scaled to [0,100]. An empty rule set scores 100.
func overallScore(results []model.RuleResult) int {
	if len(results) == 0 {
		return fullScore
	}

	var passed, total int
	for _, r := range results {
		total += r.Score
		if r.Passed {
			passed += r.Score
		}
	}
	if total == 0 {
		return fullScore
	}
	return int(math.Round(float64(passed) / float64(total) * fullScore))
}

// criticalResult is the non-retryable verdict for unexpected faults.
func criticalResult(cause any, start time.Time) model.ValidationResult {
	msg := fmt.Sprintf("unexpected internal error: %v", cause)
	synthetic := model.RuleResult{
		RuleID:   "internal",
		Passed:   false,
		Severity: model.SeverityCritical,
		Message:  msg,
		Score:    0,
	}
	return model.ValidationResult{
		IsValid: false,
		Status:  model.BidStatusRejected,
		Score:   0,
		Results: []model.RuleResult{synthetic},
		Errors: []model.ValidationIssue{{
			RuleID:         "internal",
			Severity:       model.SeverityCritical,
			Message:        msg,
			Recommendation: "do not retry; report the failure",
		}},
		Duration:  time.Since(start),
		Timestamp: time.Now().UTC(),
	}
}

// fingerprint buckets a request to the minute so duplicate submissions map
// to the same cache key.
func fingerprint(req model.BidValidationRequest) string {
	bucket := req.Timestamp.UTC().Truncate(time.Minute).Unix()
	return fmt.Sprintf("%s|%s|%s|%d", req.AuctionID, req.BidderID, req.Amount.String(), bucket)
}
