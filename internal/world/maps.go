package world

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strings"

	opensimplex "github.com/ojrac/opensimplex-go"
	"go.uber.org/zap"

	"github.com/Scrimzay/conquestsim/internal/logs"
)

// Land masks are plain [][]bool, row major. The helpers here only produce
// them; World never cares where a mask came from.

// ParseMask reads an ASCII mask: '#' or 'X' is land, '.', '~' or ' ' is
// water. Blank trailing lines are ignored.
func ParseMask(lines []string) ([][]bool, error) {
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}

	mask := make([][]bool, 0, len(lines))
	for y, line := range lines {
		line = strings.TrimRight(line, "\r")
		row := make([]bool, len(line))
		for x, ch := range line {
			switch ch {
			case '#', 'X':
				row[x] = true
			case '.', '~', ' ':
			default:
				return nil, fmt.Errorf("line %d col %d: unexpected %q", y+1, x+1, ch)
			}
		}
		mask = append(mask, row)
	}

	if len(mask) == 0 || len(mask[0]) == 0 {
		return nil, ErrEmptyMask
	}
	for y, row := range mask {
		if len(row) != len(mask[0]) {
			return nil, fmt.Errorf("line %d: %w", y+1, ErrRaggedMask)
		}
	}
	return mask, nil
}

func LoadMaskFile(path string) ([][]bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open mask: %w", err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read mask %s: %w", path, err)
	}

	mask, err := ParseMask(lines)
	if err != nil {
		return nil, fmt.Errorf("parse mask %s: %w", path, err)
	}
	return mask, nil
}

type GenConfig struct {
	Width    int
	Height   int
	Seed     int64
	SeaLevel float64 // cells with elevation above this are land
}

// Elevation is normalized noise in [0, 1] shifted by an edge falloff of
// 0.35*(d*d - 0.5), d being 0 at the centre and 1 at the corners. The falloff
// adds up to 0.175 in the middle and takes 0.175 at the corners, so elevation
// spans [-0.175, 1.175]: SeaLevel below -0.175 is all land, above 1.175 all water.
const (
	falloffStrength = 0.35
	falloffPivot    = 0.5
)

// GenerateMask builds a mask from layered simplex noise, raised in the
// middle and pulled down towards the map edges so the result reads as
// landmasses surrounded by sea.
func GenerateMask(cfg GenConfig) [][]bool {
	noise := opensimplex.NewNormalized(cfg.Seed)

	mask := make([][]bool, cfg.Height)
	for y := 0; y < cfg.Height; y++ {
		mask[y] = make([]bool, cfg.Width)
		for x := 0; x < cfg.Width; x++ {
			nx := float64(x) / float64(cfg.Width)
			ny := float64(y) / float64(cfg.Height)
			elev := octaveNoise(noise, nx, ny, 4, 3.0, 0.5)

			// radial distance, 0 at the centre and 1 at the corners
			dx, dy := nx-0.5, ny-0.5
			d := math.Sqrt(dx*dx+dy*dy) / math.Sqrt(0.5)
			elev -= falloffStrength * (d*d - falloffPivot)

			mask[y][x] = elev > cfg.SeaLevel
		}
	}
	return mask
}

func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}

// Preset returns one of the built in maps sized width x height.
func Preset(name string, width, height int, seed int64) [][]bool {
	switch name {
	case "continent":
		return continentMask(width, height)

	case "islands":
		return islandsMask(width, height)

	case "lakes":
		return lakesMask(width, height)

	case "generated":
		return GenerateMask(GenConfig{Width: width, Height: height, Seed: seed, SeaLevel: 0.45})

	default:
		logs.Warn("unknown map preset, falling back to continent", zap.String("preset", name))
		return continentMask(width, height)
	}
}

func blankMask(width, height int) [][]bool {
	mask := make([][]bool, height)
	for y := range mask {
		mask[y] = make([]bool, width)
	}
	return mask
}

// One landmass with a two cell sea border.
func continentMask(width, height int) [][]bool {
	mask := blankMask(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			mask[y][x] = x >= 2 && x < width-2 && y >= 2 && y < height-2
		}
	}
	return mask
}

// Four quadrant islands split by one cell straits, so port jumps are needed
// to cross.
func islandsMask(width, height int) [][]bool {
	mask := continentMask(width, height)
	midX, midY := width/2, height/2
	for y := 0; y < height; y++ {
		mask[y][midX] = false
	}
	for x := 0; x < width; x++ {
		mask[midY][x] = false
	}
	return mask
}

// Continent with a lake carved into each quadrant.
func lakesMask(width, height int) [][]bool {
	mask := continentMask(width, height)
	r := max(1, min(width, height)/8)
	centres := [][2]int{
		{width / 4, height / 4},
		{3 * width / 4, height / 4},
		{width / 4, 3 * height / 4},
		{3 * width / 4, 3 * height / 4},
	}
	for _, c := range centres {
		for y := c[1] - r; y <= c[1]+r; y++ {
			for x := c[0] - r; x <= c[0]+r; x++ {
				if y < 0 || y >= height || x < 0 || x >= width {
					continue
				}
				if (x-c[0])*(x-c[0])+(y-c[1])*(y-c[1]) <= r*r {
					mask[y][x] = false
				}
			}
		}
	}
	return mask
}
