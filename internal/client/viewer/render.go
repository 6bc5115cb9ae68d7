package viewer

import (
	"fmt"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"golang.org/x/image/font/basicfont"

	"flashpoint/pkg/core"
)

const (
	TileSize  = 48
	HUDHeight = 44
	FPS       = 60
)

var hudFont = text.NewGoXFace(basicfont.Face7x13)

var (
	colorClear     = color.RGBA{214, 208, 192, 255}
	colorSmoke     = color.RGBA{128, 128, 136, 255}
	colorFire      = color.RGBA{230, 84, 32, 255}
	colorExit      = color.RGBA{72, 170, 88, 255}
	colorHotspot   = color.RGBA{150, 20, 20, 255}
	colorGrid      = color.RGBA{0, 0, 0, 60}
	colorWall      = color.RGBA{36, 36, 40, 255}
	colorDamaged   = color.RGBA{160, 96, 40, 255}
	colorDestroyed = color.RGBA{90, 90, 90, 90}
	colorPOIHidden = color.RGBA{140, 70, 190, 255}
	colorPOIReal   = color.RGBA{40, 110, 220, 255}
	colorRescuer   = color.RGBA{30, 80, 200, 255}
	colorFighter   = color.RGBA{200, 40, 40, 255}
	colorIdle      = color.RGBA{110, 110, 110, 255}
	colorCarry     = color.RGBA{250, 210, 40, 255}
	colorText      = color.RGBA{230, 235, 240, 255}
	colorError     = color.RGBA{255, 120, 120, 255}
	colorHUD       = color.RGBA{24, 26, 32, 255}
)

// drawCells 火焰状态决定底色，出口和热点额外标记
func drawCells(screen *ebiten.Image, snap core.Snapshot) {
	for _, row := range snap.Cells {
		for _, c := range row {
			px := float32(c.Pos.X * TileSize)
			py := float32(c.Pos.Y * TileSize)

			var fill color.Color = colorClear
			switch c.Fire {
			case core.FireSmoke:
				fill = colorSmoke
			case core.FireFire:
				fill = colorFire
			}
			vector.DrawFilledRect(screen, px, py, TileSize, TileSize, fill, false)
			vector.StrokeRect(screen, px, py, TileSize, TileSize, 1, colorGrid, false)

			if c.IsExit {
				vector.StrokeRect(screen, px+3, py+3, TileSize-6, TileSize-6, 3, colorExit, false)
			}
			if c.Kind == core.CellHotspot {
				vector.DrawFilledRect(screen, px+4, py+4, 8, 8, colorHotspot, false)
			}
		}
	}
}

// wallSegment 两个相邻格子共享的那条边
func wallSegment(w core.WallView) (x0, y0, x1, y1 float32) {
	if w.A.X != w.B.X {
		x := float32(max(w.A.X, w.B.X) * TileSize)
		y := float32(w.A.Y * TileSize)
		return x, y, x, y + TileSize
	}
	x := float32(w.A.X * TileSize)
	y := float32(max(w.A.Y, w.B.Y) * TileSize)
	return x, y, x + TileSize, y
}

func wallStyle(w core.WallView) (color.Color, float32) {
	switch {
	case w.Destroyed:
		return colorDestroyed, 1
	case w.Health < w.MaxHealth:
		return colorDamaged, 3
	}
	return colorWall, 5
}

func drawWalls(screen *ebiten.Image, snap core.Snapshot) {
	for _, w := range snap.Walls {
		x0, y0, x1, y1 := wallSegment(w)
		clr, width := wallStyle(w)
		vector.StrokeLine(screen, x0, y0, x1, y1, width, clr, false)
	}
}

// drawPOIs 只绘制仍在地面上的 POI，被携带的由消防员标记表示
func drawPOIs(screen *ebiten.Image, snap core.Snapshot) {
	for _, poi := range snap.POIs {
		if poi.Rescued || poi.CarriedBy != core.NoFirefighter {
			continue
		}
		cx := float32(poi.Pos.X*TileSize) + TileSize*0.75
		cy := float32(poi.Pos.Y*TileSize) + TileSize*0.75
		clr := colorPOIHidden
		label := "?"
		if poi.Revealed {
			clr = colorPOIReal
			label = "V"
		}
		vector.DrawFilledCircle(screen, cx, cy, 8, clr, false)
		drawText(screen, int(cx)-3, int(cy)-7, label, colorText)
	}
}

func roleColor(r core.Role) color.Color {
	switch r {
	case core.RoleRescuer:
		return colorRescuer
	case core.RoleExtinguisher:
		return colorFighter
	}
	return colorIdle
}

func roleLetter(r core.Role) string {
	switch r {
	case core.RoleRescuer:
		return "R"
	case core.RoleExtinguisher:
		return "F"
	}
	return "-"
}

func drawFirefighters(screen *ebiten.Image, snap core.Snapshot) {
	for _, ff := range snap.Firefighters {
		cx := float32(ff.Pos.X*TileSize) + TileSize/2
		cy := float32(ff.Pos.Y*TileSize) + TileSize/2
		vector.DrawFilledCircle(screen, cx, cy, TileSize/3, roleColor(ff.Role), false)
		drawText(screen, int(cx)-3, int(cy)-7, roleLetter(ff.Role), colorText)
		if ff.CarryingPOI != core.NoPOI {
			vector.DrawFilledCircle(screen, cx+TileSize/4, cy-TileSize/4, 6, colorCarry, false)
		}
	}
}

// hudLine 状态栏文字
func hudLine(snap core.Snapshot, auto bool) string {
	st := snap.Stats
	return fmt.Sprintf("step %d  fire %d  smoke %d  rescued %d  left %d  boom %d  walls %d  [%s] auto=%v",
		st.Step, st.FireCells, st.SmokeCells, st.RescuedPOIs, st.ActivePOIs,
		st.ExplosionCount, st.IntactWalls, snap.Outcome, auto)
}

func drawHUD(screen *ebiten.Image, snap core.Snapshot, auto bool, errMsg string) {
	top := snap.Height * TileSize
	vector.DrawFilledRect(screen, 0, float32(top), float32(snap.Width*TileSize), HUDHeight, colorHUD, false)
	drawText(screen, 6, top+4, hudLine(snap, auto), colorText)
	if errMsg != "" {
		drawText(screen, 6, top+22, errMsg, colorError)
		return
	}
	drawText(screen, 6, top+22, "Space: step  A: auto  R: recreate", colorText)
}

func drawText(screen *ebiten.Image, x, y int, msg string, clr color.Color) {
	options := &text.DrawOptions{}
	options.GeoM.Translate(float64(x), float64(y))
	options.ColorScale.ScaleWithColor(clr)
	text.Draw(screen, msg, hudFont, options)
}
