package server

import (
	"strings"

	"github.com/gin-gonic/gin/binding"

	"github.com/Scrimzay/conquestsim/internal/types"
	"github.com/Scrimzay/conquestsim/internal/world"
)

// Dispatcher turns validated command structs into World calls and World
// results into response codes. It is shared by the HTTP and websocket
// surfaces.
type Dispatcher struct {
	world    *world.World
	onChange func()
}

// NewDispatcher calls onChange after every command that mutated the world.
func NewDispatcher(w *world.World, onChange func()) *Dispatcher {
	if onChange == nil {
		onChange = func() {}
	}
	return &Dispatcher{world: w, onChange: onChange}
}

func (d *Dispatcher) result(ok bool) types.Response {
	if !ok {
		return types.NewResponse(types.CodeRejected, nil)
	}
	d.onChange()
	return types.NewResponse(types.CodeOK, nil)
}

func (d *Dispatcher) Join(cmd types.JoinCommand) types.Response {
	name := strings.TrimSpace(cmd.Name)
	if name == "" {
		return types.NewResponse(types.CodeReqParamError, nil).WithDetail("name is blank")
	}
	id, ok := d.world.Join(name)
	if !ok {
		return types.NewResponse(types.CodeRosterFull, nil)
	}
	d.onChange()
	return types.NewResponse(types.CodeOK, map[string]any{"id": id})
}

func (d *Dispatcher) Leave(cmd types.LeaveCommand) types.Response {
	return d.result(d.world.Leave(world.PlayerID(cmd.Player)))
}

func (d *Dispatcher) Spawn(cmd types.SpawnCommand) types.Response {
	return d.result(d.world.Spawn(world.PlayerID(cmd.Player), cmd.X, cmd.Y))
}

func (d *Dispatcher) Attack(cmd types.AttackCommand) types.Response {
	return d.result(d.world.Attack(world.PlayerID(cmd.Player), cmd.SrcX, cmd.SrcY, cmd.DstX, cmd.DstY, cmd.Fraction))
}

func (d *Dispatcher) Expand(cmd types.ExpandCommand) types.Response {
	return d.result(d.world.Expand(world.PlayerID(cmd.Player), cmd.X, cmd.Y, cmd.Fraction))
}

func (d *Dispatcher) BuildPort(cmd types.BuildCommand) types.Response {
	return d.result(d.world.BuildPort(world.PlayerID(cmd.Player), cmd.X, cmd.Y))
}

func (d *Dispatcher) BuildCity(cmd types.BuildCommand) types.Response {
	return d.result(d.world.BuildCity(world.PlayerID(cmd.Player), cmd.X, cmd.Y))
}

// Dispatch decodes a raw websocket frame body for action and runs it.
func (d *Dispatcher) Dispatch(action string, body []byte) types.Response {
	var resp types.Response
	switch action {
	case types.ActionJoin:
		resp = bindAndRun(body, d.Join)
	case types.ActionLeave:
		resp = bindAndRun(body, d.Leave)
	case types.ActionSpawn:
		resp = bindAndRun(body, d.Spawn)
	case types.ActionAttack:
		resp = bindAndRun(body, d.Attack)
	case types.ActionExpand:
		resp = bindAndRun(body, d.Expand)
	case types.ActionBuildPort:
		resp = bindAndRun(body, d.BuildPort)
	case types.ActionBuildCity:
		resp = bindAndRun(body, d.BuildCity)
	default:
		resp = types.NewResponse(types.CodeUnknownAction, nil)
	}
	resp.Action = types.ActionResult
	resp.Request = action
	return resp
}

// bindAndRun decodes body into T and validates its binding tags, the same
// check gin applies to HTTP bodies.
func bindAndRun[T any](body []byte, run func(T) types.Response) types.Response {
	var cmd T
	if err := binding.JSON.BindBody(body, &cmd); err != nil {
		return types.NewResponse(types.CodeReqParamError, nil).WithDetail(err.Error())
	}
	return run(cmd)
}
