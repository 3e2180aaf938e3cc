package mapping

import "github.com/Alia5/jammaio/config"

// Centered is the HAT angle reported when no valid direction is held.
const Centered int16 = -1

const (
	up    = config.HatUp
	down  = config.HatDown
	right = config.HatRight
	left  = config.HatLeft
)

// hatAngles is indexed by the direction mask (bit0 Up, bit1 Down, bit2 Right,
// bit3 Left). Opposing directions and any triple or quad resolve to Centered.
var hatAngles = [16]int16{
	0:                        Centered,
	up:                       0,
	up | right:               45,
	right:                    90,
	down | right:             135,
	down:                     180,
	down | left:              225,
	left:                     270,
	up | left:                315,
	up | down:                Centered,
	right | left:             Centered,
	up | down | right:        Centered,
	up | down | left:         Centered,
	up | right | left:        Centered,
	down | right | left:      Centered,
	up | down | right | left: Centered,
}

// HatAngle converts a direction mask to degrees, or Centered.
func HatAngle(mask uint8) int16 {
	return hatAngles[mask&0x0F]
}
