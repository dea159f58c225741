package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const maxReferenceAttempts = 10

// referenceEpoch keeps the millisecond counter within 10 hex digits for decades
var referenceEpoch = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

// ReferenceChecker reports whether a reference is already stored
type ReferenceChecker interface {
	ReferenceExists(ctx context.Context, reference string) (bool, error)
}

// ReferenceGenerator builds booking references of the form
// PREFIX + YYYYMMDD + "-" + 10 hex digits of a strictly increasing millisecond
// counter + 4 random hex digits, e.g. ETH20261017-01A2B3C4D5E6F7.
// References from one process sort in creation order.
type ReferenceGenerator struct {
	prefix string
	now    Clock
	loc    *time.Location

	mu   sync.Mutex
	last int64
}

// NewReferenceGenerator creates a generator. A nil clock uses time.Now.
func NewReferenceGenerator(prefix string, loc *time.Location, now Clock) *ReferenceGenerator {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.UTC
	}
	return &ReferenceGenerator{prefix: prefix, now: now, loc: loc}
}

// Generate returns a new reference without consulting any store
func (g *ReferenceGenerator) Generate() (string, error) {
	now := g.now()
	tick := g.nextTick(now)

	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate random suffix: %w", err)
	}

	return fmt.Sprintf("%s%s-%010X%s",
		g.prefix,
		now.In(g.loc).Format("20060102"),
		tick,
		strings.ToUpper(fmt.Sprintf("%02x%02x", id[0], id[1])),
	), nil
}

// GenerateUnique retries Generate until the checker reports the reference unused
func (g *ReferenceGenerator) GenerateUnique(ctx context.Context, checker ReferenceChecker) (string, error) {
	for attempts := 0; attempts < maxReferenceAttempts; attempts++ {
		ref, err := g.Generate()
		if err != nil {
			return "", err
		}
		if checker == nil {
			return ref, nil
		}
		exists, err := checker.ReferenceExists(ctx, ref)
		if err != nil {
			return "", err
		}
		if !exists {
			return ref, nil
		}
	}
	return "", fmt.Errorf("failed to generate unique booking reference after %d attempts", maxReferenceAttempts)
}

func (g *ReferenceGenerator) nextTick(now time.Time) int64 {
	ms := now.Sub(referenceEpoch).Milliseconds()
	if ms < 0 {
		ms = 0
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if ms <= g.last {
		ms = g.last + 1
	}
	g.last = ms
	return ms & 0xFFFFFFFFFF
}
