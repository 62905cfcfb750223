package algorithms

import (
	"container/heap"
	"math"
)

// Point - 연속 좌표 (mm)
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Cell - 그리드 셀 좌표
type Cell struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type node struct {
	Cell
	g, f   float64
	parent *node
	index  int // heap 인덱스
}

// openSet - f 값 기준 최소 힙
type openSet []*node

func (pq openSet) Len() int { return len(pq) }

func (pq openSet) Less(i, j int) bool {
	return pq[i].f < pq[j].f
}

func (pq openSet) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *openSet) Push(x interface{}) {
	n := x.(*node)
	n.index = len(*pq)
	*pq = append(*pq, n)
}

func (pq *openSet) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*pq = old[:n-1]
	return item
}

// Grid - 장애물 그리드
type Grid struct {
	Width     int
	Height    int
	Obstacles map[Cell]bool
}

func NewGrid(width, height int) *Grid {
	return &Grid{
		Width:     width,
		Height:    height,
		Obstacles: make(map[Cell]bool),
	}
}

func (g *Grid) AddObstacle(x, y int) {
	g.Obstacles[Cell{x, y}] = true
}

func (g *Grid) IsObstacle(x, y int) bool {
	return g.Obstacles[Cell{x, y}]
}

func (g *Grid) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.Width && y < g.Height
}

func (g *Grid) IsValid(x, y int) bool {
	return g.InBounds(x, y) && !g.IsObstacle(x, y)
}

// 상하좌우 + 대각선
var directions = [8][2]int{
	{0, 1}, {1, 0}, {0, -1}, {-1, 0},
	{1, 1}, {1, -1}, {-1, -1}, {-1, 1},
}

func heuristic(a, b Cell) float64 {
	dx := float64(a.X - b.X)
	dy := float64(a.Y - b.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

// FindPath - 8방향 A* (대각선 비용 √2). 경로가 없으면 nil
func (g *Grid) FindPath(start, goal Cell) []Cell {
	if !g.IsValid(start.X, start.Y) || !g.IsValid(goal.X, goal.Y) {
		return nil
	}
	if start == goal {
		return []Cell{start}
	}

	open := &openSet{}
	heap.Init(open)
	heap.Push(open, &node{Cell: start, g: 0, f: heuristic(start, goal)})

	closed := make(map[Cell]bool)
	gScores := map[Cell]float64{start: 0}

	for open.Len() > 0 {
		current := heap.Pop(open).(*node)
		if current.Cell == goal {
			return reconstructPath(current)
		}
		if closed[current.Cell] {
			continue
		}
		closed[current.Cell] = true

		for _, d := range directions {
			next := Cell{current.X + d[0], current.Y + d[1]}
			if !g.IsValid(next.X, next.Y) || closed[next] {
				continue
			}

			moveCost := 1.0
			if d[0] != 0 && d[1] != 0 {
				moveCost = math.Sqrt2
			}
			tentativeG := current.g + moveCost
			if existing, ok := gScores[next]; ok && tentativeG >= existing {
				continue
			}
			gScores[next] = tentativeG

			heap.Push(open, &node{
				Cell:   next,
				g:      tentativeG,
				f:      tentativeG + heuristic(next, goal),
				parent: current,
			})
		}
	}
	return nil
}

func reconstructPath(n *node) []Cell {
	var path []Cell
	for n != nil {
		path = append(path, n.Cell)
		n = n.parent
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// Simplify - Douglas-Peucker 경로 간소화
func Simplify(path []Point, epsilon float64) []Point {
	if len(path) < 3 {
		return path
	}

	// 가장 먼 점 찾기
	dmax := 0.0
	index := 0
	last := len(path) - 1
	for i := 1; i < last; i++ {
		d := perpendicularDistance(path[i], path[0], path[last])
		if d > dmax {
			index = i
			dmax = d
		}
	}

	if dmax > epsilon {
		left := Simplify(path[:index+1], epsilon)
		right := Simplify(path[index:], epsilon)
		out := make([]Point, 0, len(left)+len(right)-1)
		out = append(out, left[:len(left)-1]...)
		return append(out, right...)
	}
	return []Point{path[0], path[last]}
}

// perpendicularDistance - 점에서 선분까지 거리
func perpendicularDistance(p, a, b Point) float64 {
	dx := b.X - a.X
	dy := b.Y - a.Y
	if dx == 0 && dy == 0 {
		return math.Hypot(p.X-a.X, p.Y-a.Y)
	}

	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / (dx*dx + dy*dy)
	t = math.Max(0, math.Min(1, t))
	return math.Hypot(p.X-(a.X+t*dx), p.Y-(a.Y+t*dy))
}
