package types

// Command payloads. The same structs are bound from HTTP bodies and from
// websocket frames; the binding tags are checked once at the boundary.

type JoinCommand struct {
	Name string `json:"name" binding:"required,min=1,max=24"`
}

type LeaveCommand struct {
	Player string `json:"player" binding:"required,uuid"`
}

type SpawnCommand struct {
	Player string `json:"player" binding:"required,uuid"`
	X      int    `json:"x" binding:"gte=0"`
	Y      int    `json:"y" binding:"gte=0"`
}

type AttackCommand struct {
	Player   string  `json:"player" binding:"required,uuid"`
	SrcX     int     `json:"srcX" binding:"gte=0"`
	SrcY     int     `json:"srcY" binding:"gte=0"`
	DstX     int     `json:"dstX" binding:"gte=0"`
	DstY     int     `json:"dstY" binding:"gte=0"`
	Fraction float64 `json:"fraction" binding:"gt=0,lte=1"`
}

type ExpandCommand struct {
	Player   string  `json:"player" binding:"required,uuid"`
	X        int     `json:"x" binding:"gte=0"`
	Y        int     `json:"y" binding:"gte=0"`
	Fraction float64 `json:"fraction" binding:"gt=0,lte=1"`
}

// BuildCommand covers both ports and cities; the kind comes from the route
// or the action name.
type BuildCommand struct {
	Player string `json:"player" binding:"required,uuid"`
	X      int    `json:"x" binding:"gte=0"`
	Y      int    `json:"y" binding:"gte=0"`
}

// Envelope is the first pass decode of a websocket frame.
type Envelope struct {
	Action string `json:"action"`
}

const (
	ActionJoin      = "join"
	ActionLeave     = "leave"
	ActionSpawn     = "spawn"
	ActionAttack    = "attack"
	ActionExpand    = "expand"
	ActionBuildPort = "build_port"
	ActionBuildCity = "build_city"
	ActionResult    = "result"
	ActionSnapshot  = "snapshot"
)
