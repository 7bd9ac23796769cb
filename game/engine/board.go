package engine

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// StrictInvariants makes every mutation panic when the board and the
// entities disagree. A violation is a bug in this package, not bad input.
var StrictInvariants = true

// PlayerSpawn returns the bottom-row midpoint where the player starts
func (gs *GameState) PlayerSpawn() Position {
	return Position{X: gs.Grid.Cols() / 2, Y: gs.Grid.Rows() - 1}
}

// EnemySpawn returns the top-row midpoint where each enemy wave enters
func (gs *GameState) EnemySpawn() Position {
	return Position{X: gs.Grid.Cols() / 2, Y: 0}
}

// HandleFireInput fires a bullet from the player
func (gs *GameState) HandleFireInput() bool {
	return gs.SpawnBullet(&gs.Player)
}

// SpawnBullet creates a bullet one cell above the origin. It is a no-op
// while another bullet is in flight or when the cell above is not free.
func (gs *GameState) SpawnBullet(origin *Entity) bool {
	if gs.GameOver || origin == nil || !origin.Alive {
		return false
	}
	if gs.BulletState == BulletInFlight {
		gs.Message = "A bullet is already in flight"
		if gs.Rules.Messages.BulletBusy != "" {
			gs.Message = gs.Rules.Messages.BulletBusy
		}
		return false
	}
	if gs.Bullet != nil && gs.Bullet.Alive {
		panic("engine: live bullet while the bullet slot is idle")
	}

	target := origin.Pos.Add(Up.Vector())
	if !gs.Grid.InBounds(target) {
		return false
	}
	switch gs.Grid.Get(target) {
	case Empty, Enemy:
	default:
		return false
	}

	bullet := NewEntity(KindBullet, target)
	bullet.Origin = origin.Pos
	gs.Bullet = bullet
	gs.Grid.Set(target, Bullet)
	gs.BulletState = BulletInFlight
	gs.BulletTask = NewTask(KindBullet, millis(gs.Rules.BulletIntervalMs))

	gs.Message = "Fire!"
	if gs.Rules.Messages.Fired != "" {
		gs.Message = gs.Rules.Messages.Fired
	}
	gs.recordEvent(GameEvent{Type: EventBulletFired, Kind: KindBullet, From: origin.Pos, To: target})

	gs.resolveCollisions()
	gs.checkWavesComplete()
	gs.mustHoldInvariants()
	return true
}

// SpawnEnemy brings in the next wave at the top-row midpoint
func (gs *GameState) SpawnEnemy() bool {
	if gs.GameOver || (gs.Enemy != nil && gs.Enemy.Alive) || !gs.wavesRemaining() {
		return false
	}

	spawn := gs.EnemySpawn()
	switch gs.Grid.Get(spawn) {
	case Empty, Bullet:
	default:
		return false
	}

	gs.Enemy = NewEntity(KindEnemy, spawn)
	gs.Grid.Set(spawn, Enemy)
	gs.WavesSpawned++
	gs.EnemyTask = NewTask(KindEnemy, millis(gs.Rules.EnemyIntervalMs))

	gs.Message = formatCount(gs.Rules.Messages.Wave, "Enemy wave %d incoming", gs.WavesSpawned)
	gs.recordEvent(GameEvent{Type: EventEnemySpawned, Kind: KindEnemy, From: spawn, To: spawn})

	gs.resolveCollisions()
	gs.mustHoldInvariants()
	return true
}

// RetireBullet removes the bullet, cancels its task and frees the slot
func (gs *GameState) RetireBullet() {
	if gs.Bullet == nil {
		return
	}
	b := gs.Bullet
	b.Alive = false
	gs.Bullet = nil
	gs.Grid.Clear(b.Pos, gs.liveEntities()...)
	gs.BulletTask.Cancel()
	gs.BulletState = Idle
}

// RetireEnemy removes the enemy and cancels its task
func (gs *GameState) RetireEnemy() {
	if gs.Enemy == nil {
		return
	}
	e := gs.Enemy
	e.Alive = false
	gs.Enemy = nil
	gs.Grid.Clear(e.Pos, gs.liveEntities()...)
	gs.EnemyTask.Cancel()
}

// Tick advances the bullet or the enemy by one cell and then resolves
// collisions against the committed board.
func (gs *GameState) Tick(kind EntityKind) bool {
	if gs.GameOver {
		return false
	}

	var changed bool
	switch kind {
	case KindBullet:
		gs.Ticks++
		changed = gs.tickBullet()
	case KindEnemy:
		gs.Ticks++
		changed = gs.tickEnemy()
	default:
		return false
	}

	gs.resolveCollisions()
	gs.checkWavesComplete()
	gs.mustHoldInvariants()
	return changed
}

// Step ticks the bullet and then the enemy, checking collisions once after both
func (gs *GameState) Step() bool {
	if gs.GameOver {
		return false
	}
	gs.Ticks++
	bulletChanged := gs.tickBullet()
	enemyChanged := gs.tickEnemy()

	gs.resolveCollisions()
	gs.checkWavesComplete()
	gs.mustHoldInvariants()
	return bulletChanged || enemyChanged
}

func (gs *GameState) tickBullet() bool {
	if gs.Bullet == nil || !gs.Bullet.Alive || !gs.BulletTask.Active() {
		return false
	}
	// Already on the enemy; the pending collision settles it.
	if gs.sharesCell() {
		return false
	}
	gs.BulletTask.Runs++

	from := gs.Bullet.Pos
	check := gs.Advance(gs.Bullet, Up)
	if check.Allowed {
		gs.recordEvent(GameEvent{Type: EventBulletMoved, Kind: KindBullet, From: from, To: gs.Bullet.Pos})
		return true
	}

	switch check.Reason {
	case ReasonBoundary:
		gs.Message = "Bullet left the board"
		gs.RetireBullet()
		gs.recordEvent(GameEvent{Type: EventBulletExited, Kind: KindBullet, From: from, To: check.Target, Reason: check.Reason})
	case ReasonWall:
		gs.Message = fmt.Sprintf("Bullet absorbed by wall at %s", check.Target)
		gs.RetireBullet()
		gs.recordEvent(GameEvent{Type: EventBulletAbsorbed, Kind: KindBullet, From: from, To: check.Target, Reason: check.Reason})
	default:
		gs.recordEvent(GameEvent{Type: EventBlocked, Kind: KindBullet, From: from, To: check.Target, Reason: check.Reason})
		return false
	}
	return true
}

func (gs *GameState) tickEnemy() bool {
	if gs.Enemy == nil || !gs.Enemy.Alive {
		return gs.SpawnEnemy()
	}
	if !gs.EnemyTask.Active() || gs.sharesCell() {
		return false
	}
	gs.EnemyTask.Runs++

	from := gs.Enemy.Pos
	check := gs.Advance(gs.Enemy, Down)
	if check.Allowed {
		gs.recordEvent(GameEvent{Type: EventEnemyMoved, Kind: KindEnemy, From: from, To: gs.Enemy.Pos})
		return true
	}

	switch check.Reason {
	case ReasonBoundary:
		gs.Message = "Enemy slipped past the bottom edge"
		gs.RetireEnemy()
		gs.recordEvent(GameEvent{Type: EventEnemyExited, Kind: KindEnemy, From: from, To: check.Target, Reason: check.Reason})
		return true
	case ReasonContact:
		gs.playerContact(KindEnemy, from, check.Target)
	default:
		gs.recordEvent(GameEvent{Type: EventBlocked, Kind: KindEnemy, From: from, To: check.Target, Reason: check.Reason})
	}
	return false
}

// resolveCollisions retires a bullet and an enemy that share a cell
func (gs *GameState) resolveCollisions() {
	if !gs.sharesCell() {
		return
	}
	at := gs.Bullet.Pos
	gs.RetireBullet()
	gs.RetireEnemy()
	gs.Score++

	gs.Message = formatCount(gs.Rules.Messages.Hit, "Enemy destroyed! Score: %d", gs.Score)
	gs.recordEvent(GameEvent{Type: EventCollision, Kind: KindBullet, From: at, To: at})
}

func (gs *GameState) playerContact(mover EntityKind, from, at Position) {
	gs.Message = fmt.Sprintf("Enemy reached the player at %s", at)
	if gs.Rules.Messages.Contact != "" {
		gs.Message = gs.Rules.Messages.Contact
	}
	gs.recordEvent(GameEvent{Type: EventPlayerContact, Kind: mover, From: from, To: at, Reason: ReasonContact})

	if gs.Rules.ContactEndsGame {
		gs.endGame(false)
	}
}

// checkWavesComplete ends a finite game once the last wave is gone
func (gs *GameState) checkWavesComplete() {
	if gs.GameOver || gs.Rules.EnemyWaves == 0 {
		return
	}
	if gs.WavesSpawned >= gs.Rules.EnemyWaves && gs.Enemy == nil {
		gs.endGame(gs.Score >= gs.Rules.EnemyWaves)
	}
}

func (gs *GameState) endGame(victory bool) {
	gs.GameOver = true
	gs.Victory = victory
	gs.BulletTask.Cancel()
	gs.EnemyTask.Cancel()

	if victory {
		gs.Message = formatCount(gs.Rules.Messages.Victory, "Victory! All %d waves destroyed!", gs.Score)
	} else if gs.Rules.Messages.GameOver != "" {
		gs.Message = gs.Rules.Messages.GameOver
	} else {
		gs.Message = fmt.Sprintf("Game Over! Score: %d", gs.Score)
	}
	gs.recordEvent(GameEvent{Type: EventGameOver, From: gs.Player.Pos, To: gs.Player.Pos})
}

func (gs *GameState) wavesRemaining() bool {
	return gs.Rules.EnemyWaves == 0 || gs.WavesSpawned < gs.Rules.EnemyWaves
}

func (gs *GameState) sharesCell() bool {
	return gs.Bullet != nil && gs.Bullet.Alive &&
		gs.Enemy != nil && gs.Enemy.Alive &&
		gs.Bullet.Pos.Equal(gs.Enemy.Pos)
}

func (gs *GameState) liveEntities() []*Entity {
	return []*Entity{&gs.Player, gs.Bullet, gs.Enemy}
}

// CheckInvariants reports the first disagreement between the grid and the entities
func (gs *GameState) CheckInvariants() error {
	if gs.Grid == nil {
		return errors.New("grid is nil")
	}
	if n := gs.Grid.Count(Player); n != 1 {
		return fmt.Errorf("expected exactly one player cell, found %d", n)
	}

	bulletAlive := gs.Bullet != nil && gs.Bullet.Alive
	enemyAlive := gs.Enemy != nil && gs.Enemy.Alive
	if n := gs.Grid.Count(Bullet); n > 1 || (n == 1) != bulletAlive {
		return fmt.Errorf("found %d bullet cells with bullet alive=%t", n, bulletAlive)
	}
	if n := gs.Grid.Count(Enemy); n > 1 || (n == 1) != enemyAlive {
		return fmt.Errorf("found %d enemy cells with enemy alive=%t", n, enemyAlive)
	}
	if (gs.BulletState == BulletInFlight) != bulletAlive {
		return fmt.Errorf("bullet slot is %s but bullet alive=%t", gs.BulletState, bulletAlive)
	}

	for _, e := range gs.liveEntities() {
		if e == nil || !e.Alive {
			continue
		}
		if !gs.Grid.InBounds(e.Pos) {
			return fmt.Errorf("%s at %s is off the grid", e.Kind, e.Pos)
		}
		if got := gs.Grid.Get(e.Pos); got != e.Symbol() {
			return fmt.Errorf("%s at %s but cell holds %s", e.Kind, e.Pos, got)
		}
	}
	return nil
}

func (gs *GameState) mustHoldInvariants() {
	if !StrictInvariants {
		return
	}
	if err := gs.CheckInvariants(); err != nil {
		panic("engine: invariant violated: " + err.Error())
	}
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// formatCount renders a template that may carry one %d, falling back when empty
func formatCount(tmpl, fallback string, n int) string {
	if tmpl == "" {
		tmpl = fallback
	}
	if strings.Contains(tmpl, "%d") {
		return fmt.Sprintf(tmpl, n)
	}
	return tmpl
}
