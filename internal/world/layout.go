// House grid generation.
// The field is tiled by equal cells; every cell carries one house in its
// top-left corner and street in the remainder.
package world

import (
	"errors"
	"fmt"

	"github.com/talgya/outbreak/internal/params"
)

// ErrBadLayout is returned when a GenConfig cannot produce a house grid.
var ErrBadLayout = errors.New("world: invalid layout")

// GenConfig holds house grid parameters.
type GenConfig struct {
	FieldWidth       int
	FieldHeight      int
	CellWidth        int // Grid pitch on x; house plus street
	CellHeight       int // Grid pitch on y
	HouseWidth       int
	HouseHeight      int
	MaxPeopleInHouse int
}

// DefaultGenConfig returns the production layout.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		FieldWidth:       params.FieldWidth,
		FieldHeight:      params.FieldHeight,
		CellWidth:        params.CellWidth,
		CellHeight:       params.CellHeight,
		HouseWidth:       params.HouseWidth,
		HouseHeight:      params.HouseHeight,
		MaxPeopleInHouse: params.MaxPeopleInHouse,
	}
}

// SmallTestConfig returns a 2×2 grid for rapid iteration.
func SmallTestConfig() GenConfig {
	return GenConfig{
		FieldWidth:       200,
		FieldHeight:      200,
		CellWidth:        100,
		CellHeight:       100,
		HouseWidth:       60,
		HouseHeight:      60,
		MaxPeopleInHouse: 5,
	}
}

// Columns returns the number of houses per row.
func (cfg GenConfig) Columns() int {
	if cfg.CellWidth <= 0 {
		return 0
	}
	return cfg.FieldWidth / cfg.CellWidth
}

// Rows returns the number of house rows.
func (cfg GenConfig) Rows() int {
	if cfg.CellHeight <= 0 {
		return 0
	}
	return cfg.FieldHeight / cfg.CellHeight
}

// HouseAmount returns floor(FieldWidth/CellWidth) * floor(FieldHeight/CellHeight).
func (cfg GenConfig) HouseAmount() int {
	return cfg.Columns() * cfg.Rows()
}

// Validate reports the first reason the config cannot produce a grid.
func (cfg GenConfig) Validate() error {
	switch {
	case cfg.FieldWidth <= 0 || cfg.FieldHeight <= 0:
		return fmt.Errorf("%w: field %dx%d", ErrBadLayout, cfg.FieldWidth, cfg.FieldHeight)
	case cfg.HouseWidth <= 0 || cfg.HouseHeight <= 0:
		return fmt.Errorf("%w: house %dx%d", ErrBadLayout, cfg.HouseWidth, cfg.HouseHeight)
	case cfg.HouseWidth > cfg.CellWidth || cfg.HouseHeight > cfg.CellHeight:
		return fmt.Errorf("%w: house %dx%d larger than cell %dx%d", ErrBadLayout,
			cfg.HouseWidth, cfg.HouseHeight, cfg.CellWidth, cfg.CellHeight)
	case cfg.HouseAmount() == 0:
		return fmt.Errorf("%w: cell %dx%d does not fit field %dx%d", ErrBadLayout,
			cfg.CellWidth, cfg.CellHeight, cfg.FieldWidth, cfg.FieldHeight)
	case cfg.MaxPeopleInHouse <= 0:
		return fmt.Errorf("%w: max people in house %d", ErrBadLayout, cfg.MaxPeopleInHouse)
	}
	return nil
}

// Generate builds the house grid row by row. House IDs run left to right,
// top to bottom.
func Generate(cfg GenConfig) (*City, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cols, rows := cfg.Columns(), cfg.Rows()
	c := &City{
		Houses:       make([]*House, 0, cols*rows),
		Width:        cfg.FieldWidth,
		Height:       cfg.FieldHeight,
		MaxResidents: cfg.MaxPeopleInHouse,
	}

	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			c.Houses = append(c.Houses, &House{
				ID: len(c.Houses),
				Coordinates: HouseCoordinates{
					LeftTopCorner: Vec{X: col * cfg.CellWidth, Y: row * cfg.CellHeight},
					Width:         cfg.HouseWidth,
					Height:        cfg.HouseHeight,
				},
			})
		}
	}
	return c, nil
}
