package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/wricardo/grid-shooter/game/service"
)

// Service is the part of service.GameService the loop drives
type Service interface {
	Input(ctx context.Context, sessionID, code string) (*service.ActionResult, error)
	Fire(ctx context.Context, sessionID string) (*service.ActionResult, error)
	Tick(ctx context.Context, sessionID, kind string) (*service.ActionResult, error)
	GetCadence(ctx context.Context, sessionID string) (*service.Cadence, error)
}

type eventKind int

const (
	eventInput eventKind = iota
	eventFire
	eventRefresh
)

type event struct {
	kind eventKind
	code string
}

// Loop drives one session in real time. A single goroutine owns the bullet
// and enemy tickers and the input queue; every event runs to completion
// before the next one is taken.
type Loop struct {
	svc       Service
	sessionID string
	events    chan event
	onChange  func(*service.ActionResult)

	bullet      *time.Ticker
	bulletEvery time.Duration
	enemy       *time.Ticker
	enemyEvery  time.Duration
}

// NewLoop creates a loop for the session. onChange, if set, receives the
// result of every input and tick from the loop goroutine.
func NewLoop(svc Service, sessionID string, onChange func(*service.ActionResult)) *Loop {
	return &Loop{
		svc:       svc,
		sessionID: sessionID,
		events:    make(chan event, 64),
		onChange:  onChange,
	}
}

// SessionID returns the session this loop drives
func (l *Loop) SessionID() string {
	return l.sessionID
}

// Input queues a direction input. It reports false when the queue is full.
func (l *Loop) Input(code string) bool {
	return l.enqueue(event{kind: eventInput, code: code})
}

// Fire queues a fire input
func (l *Loop) Fire() bool {
	return l.enqueue(event{kind: eventFire})
}

// Refresh asks the loop to re-read the cadence, e.g. after a reset
func (l *Loop) Refresh() bool {
	return l.enqueue(event{kind: eventRefresh})
}

func (l *Loop) enqueue(ev event) bool {
	select {
	case l.events <- ev:
		return true
	default:
		return false
	}
}

// Run processes inputs and ticks until the context is cancelled or the
// session disappears.
func (l *Loop) Run(ctx context.Context) error {
	defer l.stopBullet()
	defer l.stopEnemy()

	if err := l.rearm(ctx); err != nil {
		return err
	}

	for {
		var (
			result *service.ActionResult
			err    error
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-l.events:
			switch ev.kind {
			case eventInput:
				result, err = l.svc.Input(ctx, l.sessionID, ev.code)
			case eventFire:
				result, err = l.svc.Fire(ctx, l.sessionID)
			}
		case <-tickerC(l.bullet):
			result, err = l.svc.Tick(ctx, l.sessionID, service.TickBullet)
		case <-tickerC(l.enemy):
			result, err = l.svc.Tick(ctx, l.sessionID, service.TickEnemy)
		}

		if err != nil {
			return fmt.Errorf("session %s: %w", l.sessionID, err)
		}
		if result != nil && l.onChange != nil {
			l.onChange(result)
		}
		if err := l.rearm(ctx); err != nil {
			return err
		}
	}
}

// rearm starts or stops each ticker to match the session's task tokens
func (l *Loop) rearm(ctx context.Context) error {
	cadence, err := l.svc.GetCadence(ctx, l.sessionID)
	if err != nil {
		return fmt.Errorf("session %s: %w", l.sessionID, err)
	}

	switch {
	case cadence.BulletActive && (l.bullet == nil || l.bulletEvery != cadence.BulletInterval):
		l.stopBullet()
		l.bulletEvery = cadence.BulletInterval
		l.bullet = time.NewTicker(cadence.BulletInterval)
	case !cadence.BulletActive:
		l.stopBullet()
	}

	switch {
	case cadence.EnemyActive && (l.enemy == nil || l.enemyEvery != cadence.EnemyInterval):
		l.stopEnemy()
		l.enemyEvery = cadence.EnemyInterval
		l.enemy = time.NewTicker(cadence.EnemyInterval)
	case !cadence.EnemyActive:
		l.stopEnemy()
	}
	return nil
}

func (l *Loop) stopBullet() {
	if l.bullet != nil {
		l.bullet.Stop()
		l.bullet = nil
	}
}

func (l *Loop) stopEnemy() {
	if l.enemy != nil {
		l.enemy.Stop()
		l.enemy = nil
	}
}

// tickerC returns a nil channel for a stopped ticker so its select case never fires
func tickerC(t *time.Ticker) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.C
}
