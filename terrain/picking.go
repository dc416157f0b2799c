package terrain

import "github.com/aukilabs/fjall/models"

// Picker converts an on-screen point into the terrain coordinate rendered
// there. Resolving it requires a depth-buffer readback, so the capability
// belongs to the hosting renderer; this package only declares it.
type Picker interface {
	// PointCoordinate returns the terrain position rendered at the given
	// screen pixel.
	PointCoordinate(screenX, screenY float64) models.MercatorCoordinate
}

// UnimplementedPicker is the Picker of providers that cannot pick. Invoking
// it panics: a renderer exposing picking without overriding this capability
// is incomplete, which is a programming error, not a runtime condition.
type UnimplementedPicker struct{}

func (UnimplementedPicker) PointCoordinate(screenX, screenY float64) models.MercatorCoordinate {
	panic("terrain: PointCoordinate called without a picking implementation")
}
