package bot

import (
	"github.com/aristath/runebot/internal/events"
	"github.com/aristath/runebot/internal/world"
)

// BoothIDs are the bank booth objects the Bank task looks for.
var BoothIDs = []int{10583, 10355, 18491, 27291, 53015}

// BankOptions configures a Bank task.
type BankOptions struct {
	// Withdraw lists items taken out of the bank after depositing, one of each.
	Withdraw []int
}

type bankState int

const (
	bankIdle bankState = iota
	bankFindBank
	bankInteractingWithBank
	bankOpeningBank
	bankDepositing
	bankWaitingForDeposit
	bankWithdrawing
	bankWaitingForWithdraw
	bankFinished
	bankFailed
)

func (s bankState) String() string {
	switch s {
	case bankIdle:
		return "IDLE"
	case bankFindBank:
		return "FIND_BANK"
	case bankInteractingWithBank:
		return "INTERACTING_WITH_BANK"
	case bankOpeningBank:
		return "OPENING_BANK"
	case bankDepositing:
		return "DEPOSITING"
	case bankWaitingForDeposit:
		return "WAITING_FOR_DEPOSIT"
	case bankWithdrawing:
		return "WITHDRAWING"
	case bankWaitingForWithdraw:
		return "WAITING_FOR_WITHDRAW"
	case bankFinished:
		return "FINISHED"
	case bankFailed:
		return "FAILED"
	}
	return "UNKNOWN"
}

const (
	bankMaxAttempts      = 5
	bankIdleTicks        = 5
	bankInteractionTicks = 10
)

// Bank opens the nearest bank booth, deposits the whole inventory and
// optionally withdraws a set of items.
type Bank struct {
	core[bankState]

	opts     BankOptions
	booth    world.GameObject
	attempts int
	idle     int
	pending  int
}

// NewBank creates a bank task.
func NewBank(env *Env, opts BankOptions) *Bank {
	return &Bank{
		core: newCore(env, "Bank", bankIdle),
		opts: opts,
	}
}

func (b *Bank) Start() {
	b.track(events.On(b.env.Bus, b.onInteractionCompleted))
	b.log().Info("starting bank run", "items", b.env.Game.InventoryCount())
	b.set(bankFindBank)
}

func (b *Bank) Loop() {
	if b.waiting() {
		return
	}

	switch b.state {
	case bankFindBank:
		b.findBank()
	case bankInteractingWithBank:
		b.idle++
		if b.idle > bankInteractionTicks {
			b.log().Warn("bank interaction did not complete, retrying")
			b.set(bankFindBank)
		}
	case bankOpeningBank:
		b.openingBank()
	case bankDepositing:
		b.deposit()
	case bankWaitingForDeposit:
		b.waitDeposit()
	case bankWithdrawing:
		b.withdraw()
	case bankWaitingForWithdraw:
		b.waitWithdraw()
	}
}

func (b *Bank) Stop() {
	b.untrack()
	b.log().Info("bank stopped")
}

func (b *Bank) Finished() bool {
	return b.state == bankFinished || b.state == bankFailed
}

// Failed reports whether the bank run was abandoned.
func (b *Bank) Failed() bool {
	return b.state == bankFailed
}

func (b *Bank) fail(msg string, args ...any) {
	b.log().Warn(msg, args...)
	b.set(bankFailed)
}

func (b *Bank) bankOpen() bool {
	return b.env.Game.IsWidgetVisible(world.WidgetBankItems)
}

func (b *Bank) findBank() {
	if b.bankOpen() {
		b.idle = 0
		b.set(bankDepositing)
		return
	}
	if b.attempts >= bankMaxAttempts {
		b.fail("bank did not open", "attempts", b.attempts)
		return
	}

	booth, ok := b.env.Game.FindNearestObject(BoothIDs...)
	if !ok {
		b.fail("no bank booth found")
		return
	}
	if b.env.Actions.IsInteracting() {
		return
	}

	b.attempts++
	if !b.env.Actions.InteractWithGameObject(booth, "Bank") {
		b.wait(1, 2)
		return
	}
	b.log().Info("opening bank booth", "booth", booth.ID, "location", booth.Location)
	b.booth, b.idle = booth, 0
	b.set(bankInteractingWithBank)
}

func (b *Bank) onInteractionCompleted(e events.InteractionCompletedEvent) {
	if b.state != bankInteractingWithBank || e.Subject == nil || e.Subject.ID() != b.booth.ID {
		return
	}
	if !e.Success {
		b.log().Warn("bank interaction failed", "reason", e.FailureReason)
		b.set(bankFindBank)
		b.wait(1, 2)
		return
	}
	b.idle = 0
	b.set(bankOpeningBank)
}

func (b *Bank) openingBank() {
	if b.bankOpen() {
		b.log().Info("bank open")
		b.idle = 0
		b.set(bankDepositing)
		return
	}
	b.idle++
	if b.idle > bankIdleTicks {
		b.log().Warn("bank did not open, retrying")
		b.set(bankFindBank)
	}
}

func (b *Bank) deposit() {
	if b.env.Game.InventoryCount() == 0 {
		b.afterDeposit()
		return
	}
	p, ok := b.env.Game.WidgetPoint(world.WidgetBankDepositAll)
	if !ok {
		b.idle++
		if b.idle > bankIdleTicks {
			b.fail("deposit button not visible")
		}
		return
	}
	b.env.Actions.SendClickRequest(p, true)
	b.idle = 0
	b.set(bankWaitingForDeposit)
}

func (b *Bank) waitDeposit() {
	if b.env.Game.InventoryCount() == 0 {
		b.log().Info("inventory deposited")
		b.afterDeposit()
		return
	}
	b.idle++
	if b.idle > bankIdleTicks {
		b.fail("inventory not deposited", "items", b.env.Game.InventoryCount())
	}
}

func (b *Bank) afterDeposit() {
	b.idle = 0
	if len(b.opts.Withdraw) == 0 {
		b.set(bankFinished)
		return
	}
	b.set(bankWithdrawing)
}

// withdraw takes out the first listed item not yet in the inventory.
func (b *Bank) withdraw() {
	for _, id := range b.opts.Withdraw {
		if b.env.Game.HasItem(id) {
			continue
		}
		p, ok := b.env.Game.BankItemPoint(id)
		if !ok {
			b.fail("item not in bank", "item", id)
			return
		}
		b.log().Info("withdrawing item", "item", id)
		b.env.Actions.SendClickRequest(p, true)
		b.pending, b.idle = id, 0
		b.set(bankWaitingForWithdraw)
		return
	}
	b.log().Info("bank run complete")
	b.set(bankFinished)
}

func (b *Bank) waitWithdraw() {
	if b.env.Game.HasItem(b.pending) {
		b.set(bankWithdrawing)
		b.withdraw()
		return
	}
	b.idle++
	if b.idle > bankIdleTicks {
		b.fail("item not withdrawn", "item", b.pending)
	}
}
