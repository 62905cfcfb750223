package services

import (
	"errors"
	"math"
	"metafactory-twin/algorithms"
	"metafactory-twin/models"
)

var (
	// ErrNoPosition - 대상 AMR 좌표 없음
	ErrNoPosition = errors.New("amr has no position")
	// ErrNoRoute - 경로 없음
	ErrNoRoute = errors.New("no route found")
)

// RoutePlanner - 다른 AMR 을 장애물로 둔 경로 미리보기
type RoutePlanner struct {
	CellSizeMM  float64 // 그리드 셀 크기
	MarginMM    float64 // 바운딩 박스 여유
	ClearanceMM float64 // AMR 주변 점유 반경
	SimplifyMM  float64 // Douglas-Peucker epsilon
}

// NewRoutePlanner - 기본값 (셀 250mm, 여유 2m, 점유 반경 600mm)
func NewRoutePlanner() *RoutePlanner {
	return &RoutePlanner{
		CellSizeMM:  250,
		MarginMM:    2000,
		ClearanceMM: 600,
		SimplifyMM:  125,
	}
}

// Plan - amrID 에서 target 까지 경로 (mm, 시작/끝 포함)
func (rp *RoutePlanner) Plan(amrs []models.AMRView, amrID string, target models.PathPoint) ([]models.PathPoint, error) {
	var start *models.PathPoint
	var others []models.PathPoint
	for _, a := range amrs {
		if a.XMM == nil || a.YMM == nil {
			continue
		}
		p := models.PathPoint{X: *a.XMM, Y: *a.YMM}
		if a.ID == amrID {
			start = &p
			continue
		}
		others = append(others, p)
	}
	if start == nil {
		return nil, ErrNoPosition
	}

	// 바운딩 박스 (전체 AMR + 목표 + 여유)
	minX, minY := math.Min(start.X, target.X), math.Min(start.Y, target.Y)
	maxX, maxY := math.Max(start.X, target.X), math.Max(start.Y, target.Y)
	for _, p := range others {
		minX, minY = math.Min(minX, p.X), math.Min(minY, p.Y)
		maxX, maxY = math.Max(maxX, p.X), math.Max(maxY, p.Y)
	}
	minX -= rp.MarginMM
	minY -= rp.MarginMM
	maxX += rp.MarginMM
	maxY += rp.MarginMM

	cell := rp.CellSizeMM
	width := int(math.Ceil((maxX-minX)/cell)) + 1
	height := int(math.Ceil((maxY-minY)/cell)) + 1
	grid := algorithms.NewGrid(width, height)

	toCell := func(p models.PathPoint) algorithms.Cell {
		return algorithms.Cell{
			X: int(math.Round((p.X - minX) / cell)),
			Y: int(math.Round((p.Y - minY) / cell)),
		}
	}

	startCell := toCell(*start)
	goalCell := toCell(target)

	r := int(math.Ceil(rp.ClearanceMM / cell))
	for _, p := range others {
		c := toCell(p)
		for dx := -r; dx <= r; dx++ {
			for dy := -r; dy <= r; dy++ {
				if float64(dx*dx+dy*dy)*cell*cell > rp.ClearanceMM*rp.ClearanceMM {
					continue
				}
				x, y := c.X+dx, c.Y+dy
				if !grid.InBounds(x, y) || (x == startCell.X && y == startCell.Y) {
					continue
				}
				grid.AddObstacle(x, y)
			}
		}
	}

	cells := grid.FindPath(startCell, goalCell)
	if cells == nil {
		return nil, ErrNoRoute
	}

	pts := make([]algorithms.Point, len(cells))
	for i, c := range cells {
		pts[i] = algorithms.Point{X: minX + float64(c.X)*cell, Y: minY + float64(c.Y)*cell}
	}
	pts = algorithms.Simplify(pts, rp.SimplifyMM)

	// 양 끝은 실제 좌표로
	out := make([]models.PathPoint, len(pts))
	for i, p := range pts {
		out[i] = models.PathPoint{X: p.X, Y: p.Y}
	}
	out[0] = *start
	if len(out) > 1 {
		out[len(out)-1] = target
	} else {
		out = append(out, target)
	}
	return out, nil
}
