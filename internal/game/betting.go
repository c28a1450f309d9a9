package game

// Context carries the betting state a validation runs against
type Context struct {
	Phase      Phase
	CurrentBet int
	MinRaise   int
	BigBlind   int

	// RaiseClosed is set for players who already acted since the last
	// full raise when a short all-in moved the bet without reopening
	// the betting. They may call or fold but not raise again.
	RaiseClosed bool
}

// ExecResult describes the state change produced by executing an action
type ExecResult struct {
	PotContribution int
	NewCurrentBet   int
	NewMinRaise     int
	// Aggressive is true when the action raised the current bet
	Aggressive bool
	// FullRaise is true when the aggression was at least a full min
	// raise, which reopens the betting for players who already acted
	FullRaise bool
}

const (
	validationCacheCap = 5000
	// Oldest share evicted when the cache exceeds its cap
	validationCacheEvict = validationCacheCap / 10
)

// validationKey covers every input the rules read, so a cached result
// can never go stale as bets, stacks, and rounds move on
type validationKey struct {
	Kind        ActionKind
	Amount      int
	PlayerID    string
	PlayerBet   int
	PlayerChips int
	Folded      bool
	AllIn       bool
	CurrentBet  int
	MinRaise    int
	RaiseClosed bool
	Phase       Phase
}

// Engine validates and executes single betting actions. Validation
// results are cached; the cache is local to one table engine.
type Engine struct {
	cache map[validationKey]error
	order []validationKey
}

// NewEngine creates a betting engine
func NewEngine() *Engine {
	return &Engine{cache: make(map[validationKey]error)}
}

// AvailableActions returns the action kinds the player may legally take
func (e *Engine) AvailableActions(p *Player, ctx Context) []ActionKind {
	if p.Folded || p.AllInFlag || p.SittingOut {
		return nil
	}

	actions := []ActionKind{Fold}
	toCall := ctx.CurrentBet - p.Bet

	if toCall == 0 {
		actions = append(actions, Check)
	} else if p.Chips >= toCall {
		actions = append(actions, Call)
	}

	if ctx.CurrentBet == 0 {
		if p.Chips >= ctx.BigBlind {
			actions = append(actions, Bet)
		}
	} else if !ctx.RaiseClosed && p.Chips >= ctx.CurrentBet+ctx.MinRaise-p.Bet {
		actions = append(actions, Raise)
	}

	if p.Chips > 0 {
		actions = append(actions, AllIn)
	}

	return actions
}

// Validate checks an action against the betting rules without mutating
// anything. Results are memoized on the full validation input.
func (e *Engine) Validate(action Action, p *Player, ctx Context) error {
	key := validationKey{
		Kind:        action.Kind,
		Amount:      action.Amount,
		PlayerID:    p.ID,
		PlayerBet:   p.Bet,
		PlayerChips: p.Chips,
		Folded:      p.Folded,
		AllIn:       p.AllInFlag,
		CurrentBet:  ctx.CurrentBet,
		MinRaise:    ctx.MinRaise,
		RaiseClosed: ctx.RaiseClosed,
		Phase:       ctx.Phase,
	}
	if err, ok := e.cache[key]; ok {
		return err
	}

	err := e.validate(action, p, ctx)
	e.store(key, err)
	return err
}

func (e *Engine) validate(action Action, p *Player, ctx Context) error {
	if p.Folded {
		return illegal(action.Kind, ActionHints{}, "player has folded")
	}
	if p.AllInFlag {
		return illegal(action.Kind, ActionHints{}, "player is all-in")
	}

	toCall := ctx.CurrentBet - p.Bet
	hints := ActionHints{
		CallAmount: toCall,
		MinBet:     ctx.BigBlind,
		MaxBet:     p.Chips,
		MinRaiseTo: ctx.CurrentBet + ctx.MinRaise,
	}

	switch action.Kind {
	case Fold:
		return nil

	case Check:
		if toCall != 0 {
			return illegal(Check, hints, "must call %d", toCall)
		}
		return nil

	case Call:
		if toCall == 0 {
			return illegal(Call, hints, "nothing to call, check instead")
		}
		if p.Chips < toCall {
			return ErrInsufficientFunds
		}
		return nil

	case Bet:
		if ctx.CurrentBet != 0 {
			return illegal(Bet, hints, "bet already open at %d, raise instead", ctx.CurrentBet)
		}
		if action.Amount < ctx.BigBlind {
			return illegal(Bet, hints, "bet %d below minimum %d", action.Amount, ctx.BigBlind)
		}
		if action.Amount > p.Chips {
			return ErrInsufficientFunds
		}
		return nil

	case Raise:
		if ctx.CurrentBet == 0 {
			return illegal(Raise, hints, "no bet to raise, bet instead")
		}
		if ctx.RaiseClosed {
			return illegal(Raise, hints, "betting not reopened by short all-in")
		}
		if action.Amount < ctx.CurrentBet+ctx.MinRaise {
			return illegal(Raise, hints, "raise to %d below minimum %d", action.Amount, ctx.CurrentBet+ctx.MinRaise)
		}
		if action.Amount-p.Bet > p.Chips {
			return ErrInsufficientFunds
		}
		return nil

	case AllIn:
		if p.Chips <= 0 {
			return illegal(AllIn, hints, "no chips to wager")
		}
		return nil

	default:
		return illegal(action.Kind, hints, "unknown action kind")
	}
}

// Execute applies a validated action to the player and reports the
// resulting betting state. It must not be called when Validate failed.
func (e *Engine) Execute(action Action, p *Player, ctx Context) ExecResult {
	res := ExecResult{
		NewCurrentBet: ctx.CurrentBet,
		NewMinRaise:   ctx.MinRaise,
	}
	act := action

	switch action.Kind {
	case Fold:
		p.Folded = true

	case Check:
		// No chip movement

	case Call:
		toCall := ctx.CurrentBet - p.Bet
		p.Chips -= toCall
		p.Bet += toCall
		p.TotalBet += toCall
		res.PotContribution = toCall
		if p.Chips == 0 {
			p.AllInFlag = true
		}

	case Bet:
		p.Chips -= action.Amount
		p.Bet += action.Amount
		p.TotalBet += action.Amount
		res.PotContribution = action.Amount
		res.NewCurrentBet = action.Amount
		res.NewMinRaise = action.Amount
		res.Aggressive = true
		res.FullRaise = true
		if p.Chips == 0 {
			p.AllInFlag = true
		}

	case Raise:
		contribution := action.Amount - p.Bet
		p.Chips -= contribution
		p.Bet = action.Amount
		p.TotalBet += contribution
		res.PotContribution = contribution
		res.NewMinRaise = action.Amount - ctx.CurrentBet
		res.NewCurrentBet = action.Amount
		res.Aggressive = true
		res.FullRaise = true
		if p.Chips == 0 {
			p.AllInFlag = true
		}

	case AllIn:
		contribution := p.Chips
		p.Chips = 0
		p.AllInFlag = true
		p.Bet += contribution
		p.TotalBet += contribution
		res.PotContribution = contribution
		act.Amount = p.Bet

		if p.Bet > ctx.CurrentBet {
			res.Aggressive = true
			// Only a full raise reopens the betting
			res.FullRaise = p.Bet >= ctx.CurrentBet+ctx.MinRaise
			if res.FullRaise {
				res.NewMinRaise = p.Bet - ctx.CurrentBet
			}
			res.NewCurrentBet = p.Bet
		}
	}

	p.LastAction = &act
	return res
}

func (e *Engine) store(key validationKey, err error) {
	if _, exists := e.cache[key]; !exists {
		e.order = append(e.order, key)
	}
	e.cache[key] = err

	if len(e.cache) > validationCacheCap {
		evict := e.order[:validationCacheEvict]
		e.order = e.order[validationCacheEvict:]
		for _, k := range evict {
			delete(e.cache, k)
		}
	}
}

// CacheSize returns the number of cached validation results
func (e *Engine) CacheSize() int {
	return len(e.cache)
}

// Reset drops all cached validation results. Called at the start of
// each hand so one hand's entries never pile up into the next.
func (e *Engine) Reset() {
	e.cache = make(map[validationKey]error)
	e.order = nil
}
