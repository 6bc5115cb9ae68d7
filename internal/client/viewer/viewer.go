package viewer

import (
	"time"

	"github.com/hajimehoshi/ebiten/v2"

	"flashpoint/internal/client"
	"flashpoint/pkg/core"
)

type keyTracker struct {
	prev map[ebiten.Key]bool
}

func (k *keyTracker) JustPressed(key ebiten.Key) bool {
	if k.prev == nil {
		k.prev = make(map[ebiten.Key]bool)
	}
	now := ebiten.IsKeyPressed(key)
	prev := k.prev[key]
	k.prev[key] = now
	return now && !prev
}

// Viewer 模拟查看器（Ebiten 游戏循环）
type Viewer struct {
	source    client.StateSource
	input     keyTracker
	auto      bool
	autoEvery time.Duration
	lastAuto  time.Time

	snap    core.Snapshot
	has     bool
	lastErr string
}

// New 创建查看器，autoEvery 为自动推进间隔
func New(source client.StateSource, autoEvery time.Duration) *Viewer {
	if autoEvery <= 0 {
		autoEvery = 300 * time.Millisecond
	}
	return &Viewer{source: source, autoEvery: autoEvery}
}

// Update 处理按键并刷新状态
func (v *Viewer) Update() error {
	if v.input.JustPressed(ebiten.KeySpace) {
		v.report(v.source.Step())
	}
	if v.input.JustPressed(ebiten.KeyA) {
		v.auto = !v.auto
		v.lastAuto = time.Now()
	}
	if v.input.JustPressed(ebiten.KeyR) {
		v.auto = false
		v.report(v.source.Recreate())
	}

	if v.auto && time.Since(v.lastAuto) >= v.autoEvery {
		v.lastAuto = time.Now()
		v.report(v.source.Step())
	}

	v.snap, v.has = v.source.Snapshot()
	if v.has && v.snap.Outcome != core.OutcomeOngoing {
		v.auto = false
	}
	if err := v.source.Err(); err != nil {
		v.lastErr = err.Error()
	}
	return nil
}

func (v *Viewer) report(err error) {
	if err != nil {
		v.lastErr = err.Error()
		return
	}
	v.lastErr = ""
}

// Draw 绘制画面
func (v *Viewer) Draw(screen *ebiten.Image) {
	if !v.has {
		drawText(screen, 8, 8, "waiting for state...", colorText)
		return
	}
	drawCells(screen, v.snap)
	drawWalls(screen, v.snap)
	drawPOIs(screen, v.snap)
	drawFirefighters(screen, v.snap)
	drawHUD(screen, v.snap, v.auto, v.lastErr)
}

// Layout 按棋盘尺寸决定逻辑分辨率
func (v *Viewer) Layout(outsideWidth, outsideHeight int) (int, int) {
	if !v.has {
		return ScreenSize(core.DefaultWidth, core.DefaultHeight)
	}
	return ScreenSize(v.snap.Width, v.snap.Height)
}

// ScreenSize 棋盘对应的窗口尺寸
func ScreenSize(width, height int) (int, int) {
	return width * TileSize, height*TileSize + HUDHeight
}
