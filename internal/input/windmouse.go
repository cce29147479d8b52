package input

import (
	"math"
	"time"

	"github.com/aristath/runebot/internal/world"
)

var (
	sqrt3 = math.Sqrt(3)
	sqrt5 = math.Sqrt(5)
)

// maxPathSteps stops a trajectory that fails to converge.
const maxPathSteps = 5000

// WindParams tunes the Windmouse trajectory.
type WindParams struct {
	Gravity      float64 // pull towards the target
	Wind         float64 // magnitude of random wind
	MaxVelocity  float64 // per-step speed clip
	TargetArea   float64 // distance below which wind fades out
	MinStepDelay time.Duration
	MaxStepDelay time.Duration
}

// DefaultWindParams returns the physics used when nothing is configured.
func DefaultWindParams() WindParams {
	return WindParams{
		Gravity:      9,
		Wind:         3,
		MaxVelocity:  15,
		TargetArea:   12,
		MinStepDelay: 5 * time.Millisecond,
		MaxStepDelay: 10 * time.Millisecond,
	}
}

// Step is one cursor position and the pause that follows it.
type Step struct {
	Point world.Point
	Delay time.Duration
}

// Path simulates a Windmouse trajectory from start to dest. Only steps that
// change the integer cursor position are emitted, and the last step lands on dest.
func (h *Humanizer) Path(start, dest world.Point, p WindParams) []Step {
	x, y := float64(start.X), float64(start.Y)
	var vx, vy, wx, wy float64
	maxStep := p.MaxVelocity
	last := start

	var steps []Step
	for range maxPathSteps {
		dx := float64(dest.X) - x
		dy := float64(dest.Y) - y
		dist := math.Hypot(dx, dy)
		if dist < 1 {
			break
		}

		if dist >= p.TargetArea {
			w := math.Min(p.Wind, dist)
			wx = wx/sqrt3 + (2*h.Float64()-1)*w/sqrt5
			wy = wy/sqrt3 + (2*h.Float64()-1)*w/sqrt5
		} else {
			wx /= sqrt3
			wy /= sqrt3
			if maxStep < 3 {
				maxStep = 3 + h.Float64()*3
			} else {
				maxStep /= sqrt5
			}
		}

		vx += wx + p.Gravity*dx/dist
		vy += wy + p.Gravity*dy/dist

		if v := math.Hypot(vx, vy); v > maxStep {
			clip := maxStep/2 + h.Float64()*maxStep/2
			vx = vx / v * clip
			vy = vy / v * clip
		}

		x += vx
		y += vy

		pt := world.Point{X: int(math.Round(x)), Y: int(math.Round(y))}
		if pt != last {
			steps = append(steps, Step{Point: pt, Delay: h.stepDelay(p)})
			last = pt
		}
	}

	if last != dest {
		steps = append(steps, Step{Point: dest, Delay: h.stepDelay(p)})
	}
	return steps
}

func (h *Humanizer) stepDelay(p WindParams) time.Duration {
	if p.MaxStepDelay <= p.MinStepDelay {
		return max(p.MinStepDelay, 0)
	}
	return h.Millis(int(p.MinStepDelay/time.Millisecond), int(p.MaxStepDelay/time.Millisecond))
}
