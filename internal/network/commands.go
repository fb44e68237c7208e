package network

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/MRamiBalles/idlekernel/internal/domain/quantity"
	"github.com/MRamiBalles/idlekernel/internal/engine"
	"github.com/MRamiBalles/idlekernel/internal/events"
	"github.com/MRamiBalles/idlekernel/internal/platform/logger"
)

var (
	ErrUnknownCommand   = errors.New("network: unknown command")
	ErrInvalidQuantity  = errors.New("network: quantity must be -1 or positive")
	ErrSavingDisabled   = errors.New("network: no save store configured")
	ErrMalformedCommand = errors.New("network: malformed command")
)

// Command is a player request received over the websocket.
type Command struct {
	Type       string `json:"type"` // "pause", "resume", "buy_land", ...
	Quantity   *int   `json:"quantity,omitempty"`
	Divider    int    `json:"divider,omitempty"`
	Crop       string `json:"crop,omitempty"`
	A          string `json:"a,omitempty"`
	B          string `json:"b,omitempty"`
	ID         string `json:"id,omitempty"`
	Slot       string `json:"slot,omitempty"`
	Scientific bool   `json:"scientific,omitempty"`
}

// quantity defaults to a single unit when the client omits it.
func (c Command) quantity() int {
	if c.Quantity == nil {
		return 1
	}
	return *c.Quantity
}

// Reply answers exactly one Command.
type Reply struct {
	Command string      `json:"command"`
	OK      bool        `json:"ok"`
	Error   string      `json:"error,omitempty"`
	Result  interface{} `json:"result,omitempty"`
}

// ClockResult answers clock commands. Applied is false when a resume asked
// for a tier that is still locked and the clock was left as it was.
type ClockResult struct {
	Clock   engine.SimClock `json:"clock"`
	Applied bool            `json:"applied"`
}

// Saver writes the current game on demand.
type Saver interface {
	SaveNow(ctx context.Context) error
}

// Router applies commands to the engine. It is shared by every client.
type Router struct {
	engine *engine.Engine
	saver  Saver
	logger *logger.Logger
}

// NewRouter creates a command router. saver may be nil.
func NewRouter(e *engine.Engine, saver Saver, log *logger.Logger) *Router {
	return &Router{engine: e, saver: saver, logger: log}
}

// DecodeCommand parses one websocket message.
func DecodeCommand(message []byte) (Command, error) {
	var cmd Command
	if err := json.Unmarshal(message, &cmd); err != nil {
		return Command{}, fmt.Errorf("%w: %v", ErrMalformedCommand, err)
	}
	if cmd.Type == "" {
		return Command{}, fmt.Errorf("%w: missing type", ErrMalformedCommand)
	}
	return cmd, nil
}

// Dispatch runs cmd and reports the outcome.
func (r *Router) Dispatch(ctx context.Context, cmd Command) Reply {
	result, err := r.apply(ctx, cmd)
	if err != nil {
		r.logger.Warnf("Command %s rejected: %v", cmd.Type, err)
		return Reply{Command: cmd.Type, Error: err.Error()}
	}
	r.logger.Event("COMMAND", events.ActorPlayer, cmd.Type)
	return Reply{Command: cmd.Type, OK: true, Result: result}
}

func (r *Router) apply(ctx context.Context, cmd Command) (interface{}, error) {
	e := r.engine

	switch cmd.Type {
	case "pause":
		e.Pause()
		return ClockResult{Clock: e.Clock(), Applied: true}, nil
	case "resume":
		// A locked tier is a no-op, not an error.
		applied := e.Resume(cmd.Divider)
		return ClockResult{Clock: e.Clock(), Applied: applied}, nil
	case "toggle":
		applied := e.TogglePause()
		return ClockResult{Clock: e.Clock(), Applied: applied}, nil
	case "step":
		if err := e.Step(); err != nil {
			return nil, err
		}
		return ClockResult{Clock: e.Clock(), Applied: true}, nil

	case "buy_land", "plow", "clear":
		n := cmd.quantity()
		if !quantity.Valid(n) {
			return nil, fmt.Errorf("%w: %d", ErrInvalidQuantity, n)
		}
		switch cmd.Type {
		case "buy_land":
			return e.BuyLand(n), nil
		case "plow":
			return e.Plow(n), nil
		default:
			return e.ClearFields(n), nil
		}
	case "reset_fields":
		return e.ResetFields(), nil
	case "select_crop":
		return nil, e.SelectCrop(cmd.Crop)

	case "merge":
		out, err := e.Merge(cmd.A, cmd.B)
		if err != nil {
			return nil, err
		}
		return out, nil
	case "equip":
		return nil, e.Equip(cmd.ID)
	case "use_pill":
		res, err := e.UsePill(cmd.ID)
		if err != nil {
			return nil, err
		}
		return res, nil
	case "place_furniture":
		return nil, e.PlaceFurniture(cmd.Slot, cmd.ID)

	case "set_notation":
		e.SetNotation(cmd.Scientific)
		return nil, nil
	case "save":
		if r.saver == nil {
			return nil, ErrSavingDisabled
		}
		return nil, r.saver.SaveNow(ctx)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Type)
}
