package raffle

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"qraffle/internal/chain"
	"qraffle/internal/metrics"
	"qraffle/internal/token"
)

const start = int64(1_700_000_000)

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Emit(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]string, 0, len(r.events))
	for _, event := range r.events {
		types = append(types, event.Type)
	}
	return types
}

type fixture struct {
	ledger        *chain.MemLedger
	clock         *chain.ManualClock
	program       *Program
	events        *recorder
	upgrade       solana.PublicKey
	admin         solana.PublicKey
	adminProceeds solana.PublicKey
	mint          solana.PublicKey
	mintAuthority solana.PublicKey
}

func newProgramFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		ledger:        chain.NewMemLedger(),
		clock:         chain.NewManualClock(start),
		events:        &recorder{},
		upgrade:       newKey(t),
		admin:         newKey(t),
		mint:          newKey(t),
		mintAuthority: newKey(t),
	}
	programID := newKey(t)
	f.program = NewProgram(programID, f.ledger)
	f.program.SetClock(f.clock)
	f.program.SetEmitter(f.events)
	f.program.SetMetrics(metrics.Raffle())

	require.NoError(t, chain.Deploy(f.ledger, programID, f.upgrade))
	require.NoError(t, chain.Fund(f.ledger, f.upgrade, 10_000_000_000))
	require.NoError(t, chain.Fund(f.ledger, f.admin, 10_000_000_000))
	f.run(t, func(tx chain.Store) error {
		return token.CreateMint(tx, chain.NewSigners(f.admin, f.mint), f.admin, f.mint, f.mintAuthority, 0)
	})

	err := f.program.InitAdmin(context.Background(), InitAdminAccounts{Authority: f.upgrade}, chain.NewSigners(f.upgrade), f.admin)
	require.NoError(t, err)
	f.adminProceeds = f.tokenAccount(t, f.admin, 0)
	return f
}

func (f *fixture) run(t *testing.T, fn func(tx chain.Store) error) {
	t.Helper()
	require.NoError(t, f.ledger.Transaction(context.Background(), fn))
}

func (f *fixture) tokenAccount(t *testing.T, owner solana.PublicKey, amount uint64) solana.PublicKey {
	t.Helper()
	address := newKey(t)
	f.run(t, func(tx chain.Store) error {
		if err := token.CreateAccount(tx, chain.NewSigners(f.admin, address), f.admin, address, f.mint, owner); err != nil {
			return err
		}
		return token.MintTo(tx, chain.NewSigners(f.mintAuthority), f.mint, address, f.mintAuthority, amount)
	})
	return address
}

// entrantsRegion allocates a zeroed program-owned region sized for space
// bytes, the way a client pre-allocates the ledger before initialize.
func (f *fixture) entrantsRegion(t *testing.T, space uint64) solana.PublicKey {
	t.Helper()
	address := newKey(t)
	f.run(t, func(tx chain.Store) error {
		_, err := chain.CreateAccount(tx, chain.NewSigners(f.admin, address), f.admin, address, space, f.program.ID())
		return err
	})
	return address
}

func (f *fixture) newRaffle(t *testing.T, price uint64, end int64, maxEntrants uint32) RaffleAccounts {
	t.Helper()
	entrants := f.entrantsRegion(t, EntrantsSpace(maxEntrants))
	accounts, err := f.program.Initialize(context.Background(), InitializeAccounts{
		Authority:    f.admin,
		Entrants:     entrants,
		ProceedsMint: f.mint,
	}, chain.NewSigners(f.admin), price, end, maxEntrants)
	require.NoError(t, err)
	return accounts
}

type buyer struct {
	owner   solana.PublicKey
	account solana.PublicKey
}

func (f *fixture) newBuyer(t *testing.T, balance uint64) buyer {
	t.Helper()
	owner := newKey(t)
	return buyer{owner: owner, account: f.tokenAccount(t, owner, balance)}
}

func (f *fixture) buy(r RaffleAccounts, b buyer, amount uint32) error {
	return f.program.Buy(context.Background(), BuyAccounts{
		Raffle:            r.Raffle,
		Entrants:          r.Entrants,
		BuyerTokenAccount: b.account,
		Buyer:             b.owner,
	}, chain.NewSigners(b.owner), amount)
}

func (f *fixture) close(r RaffleAccounts, authority, receiver solana.PublicKey) error {
	return f.program.Close(context.Background(), CloseAccounts{
		Raffle:            r.Raffle,
		Entrants:          r.Entrants,
		AuthorityProceeds: receiver,
		Authority:         authority,
	}, chain.NewSigners(authority))
}

func (f *fixture) balance(t *testing.T, account solana.PublicKey) uint64 {
	t.Helper()
	state, err := token.GetAccount(f.ledger, account)
	require.NoError(t, err)
	return state.Amount
}

func (f *fixture) total(t *testing.T, r RaffleAccounts) uint32 {
	t.Helper()
	entrants, err := f.program.Entrants(context.Background(), r.Entrants)
	require.NoError(t, err)
	return uint32(len(entrants))
}

func TestInitAdminRequiresUpgradeAuthority(t *testing.T) {
	ctx := context.Background()
	ledger := chain.NewMemLedger()
	programID, upgrade, stranger, admin := newKey(t), newKey(t), newKey(t), newKey(t)
	program := NewProgram(programID, ledger)
	require.NoError(t, chain.Deploy(ledger, programID, upgrade))
	require.NoError(t, chain.Fund(ledger, upgrade, 1_000_000_000))
	require.NoError(t, chain.Fund(ledger, stranger, 1_000_000_000))

	err := program.InitAdmin(ctx, InitAdminAccounts{Authority: stranger}, chain.NewSigners(stranger), admin)
	require.ErrorIs(t, err, ErrUnauthorized)

	err = program.InitAdmin(ctx, InitAdminAccounts{Authority: upgrade}, chain.NewSigners(stranger), admin)
	require.ErrorIs(t, err, ErrUnauthorized)

	err = program.InitAdmin(ctx, InitAdminAccounts{Authority: upgrade}, chain.NewSigners(upgrade), solana.PublicKey{})
	require.ErrorIs(t, err, ErrInvalidAdminKey)

	_, err = program.AdminSettings(ctx)
	require.ErrorIs(t, err, chain.ErrAccountNotFound)

	require.NoError(t, program.InitAdmin(ctx, InitAdminAccounts{Authority: upgrade}, chain.NewSigners(upgrade), admin))
	settings, err := program.AdminSettings(ctx)
	require.NoError(t, err)
	require.Equal(t, admin, settings.AdminKey)

	address, _, err := AdminSettingsAddress(programID)
	require.NoError(t, err)
	account, err := ledger.GetAccount(address)
	require.NoError(t, err)
	require.Equal(t, programID, account.Owner)
	require.Len(t, account.Data, AdminSettingsSize)
	require.Equal(t, chain.MinimumBalance(AdminSettingsSize), account.Lamports)

	err = program.InitAdmin(ctx, InitAdminAccounts{Authority: upgrade}, chain.NewSigners(upgrade), newKey(t))
	require.ErrorIs(t, err, chain.ErrAccountAlreadyInUse)
}

func TestInitAdminOnImmutableProgram(t *testing.T) {
	ledger := chain.NewMemLedger()
	programID, signer := newKey(t), newKey(t)
	program := NewProgram(programID, ledger)
	require.NoError(t, chain.Deploy(ledger, programID, solana.PublicKey{}))
	require.NoError(t, chain.Fund(ledger, signer, 1_000_000_000))

	err := program.InitAdmin(context.Background(), InitAdminAccounts{Authority: signer}, chain.NewSigners(signer), newKey(t))
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestSetAdminMovesTheAdminChain(t *testing.T) {
	f := newProgramFixture(t)
	ctx := context.Background()
	next := newKey(t)
	require.NoError(t, chain.Fund(f.ledger, next, 10_000_000_000))

	// The current admin cannot hand over authority by itself.
	err := f.program.SetAdmin(ctx, SetAdminAccounts{Authority: f.admin}, chain.NewSigners(f.admin), next)
	require.ErrorIs(t, err, ErrUnauthorized)

	// The upgrade authority can, without the admin's consent.
	require.NoError(t, f.program.SetAdmin(ctx, SetAdminAccounts{Authority: f.upgrade}, chain.NewSigners(f.upgrade), next))
	settings, err := f.program.AdminSettings(ctx)
	require.NoError(t, err)
	require.Equal(t, next, settings.AdminKey)

	err = f.program.SetAdmin(ctx, SetAdminAccounts{Authority: f.upgrade}, chain.NewSigners(f.upgrade), solana.PublicKey{})
	require.ErrorIs(t, err, ErrInvalidAdminKey)

	entrants := f.entrantsRegion(t, EntrantsSpace(1))
	params := InitializeAccounts{Authority: f.admin, Entrants: entrants, ProceedsMint: f.mint}
	_, err = f.program.Initialize(ctx, params, chain.NewSigners(f.admin), 10, start+100, 1)
	require.ErrorIs(t, err, ErrUnauthorized)

	params.Authority = next
	r, err := f.program.Initialize(ctx, params, chain.NewSigners(next), 10, start+100, 1)
	require.NoError(t, err)

	f.clock.Set(start + 101)
	require.ErrorIs(t, f.close(r, f.admin, f.adminProceeds), ErrUnauthorized)
	nextProceeds := f.tokenAccount(t, next, 0)
	require.NoError(t, f.close(r, next, nextProceeds))

	require.Equal(t, []string{
		EventTypeAdminInitialized,
		EventTypeAdminSet,
		EventTypeRaffleInitialized,
		EventTypeRaffleClosed,
	}, f.events.types())
}

func TestInitializeCreatesRaffle(t *testing.T) {
	f := newProgramFixture(t)
	ctx := context.Background()
	r := f.newRaffle(t, 100, start+1000, 5)

	expectedRaffle, bump, err := RaffleAddress(f.program.ID(), r.Entrants)
	require.NoError(t, err)
	require.Equal(t, expectedRaffle, r.Raffle)
	expectedProceeds, _, err := ProceedsAddress(f.program.ID(), r.Raffle)
	require.NoError(t, err)
	require.Equal(t, expectedProceeds, r.Proceeds)

	raffle, err := f.program.Raffle(ctx, r.Raffle)
	require.NoError(t, err)
	require.Equal(t, Raffle{Bump: bump, Price: 100, EndTimestamp: start + 1000, Entrants: r.Entrants}, *raffle)

	escrow, err := token.GetAccount(f.ledger, r.Proceeds)
	require.NoError(t, err)
	require.Equal(t, r.Raffle, escrow.Owner)
	require.Equal(t, f.mint, escrow.Mint)
	require.Zero(t, escrow.Amount)

	require.Zero(t, f.total(t, r))
	infos, err := f.program.ListRaffles(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	require.Equal(t, uint32(5), infos[0].Max)
	require.False(t, infos[0].Closable)
}

func TestInitializePreconditions(t *testing.T) {
	f := newProgramFixture(t)
	ctx := context.Background()
	stranger := newKey(t)
	require.NoError(t, chain.Fund(f.ledger, stranger, 10_000_000_000))

	entrants := f.entrantsRegion(t, EntrantsSpace(3))
	params := InitializeAccounts{Authority: f.admin, Entrants: entrants, ProceedsMint: f.mint}

	_, err := f.program.Initialize(ctx, InitializeAccounts{Authority: stranger, Entrants: entrants, ProceedsMint: f.mint}, chain.NewSigners(stranger), 1, start+10, 3)
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.program.Initialize(ctx, params, chain.Signers{}, 1, start+10, 3)
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.program.Initialize(ctx, params, chain.NewSigners(f.admin), 1, start, 3)
	require.ErrorIs(t, err, ErrEndTimestampAlreadyPassed)

	_, err = f.program.Initialize(ctx, params, chain.NewSigners(f.admin), 1, start+10, 4)
	require.ErrorIs(t, err, ErrEntrantsAccountTooSmallForMaxEntrants)

	// Nothing from the failed attempts is visible.
	raffleAddress, _, err := RaffleAddress(f.program.ID(), entrants)
	require.NoError(t, err)
	_, err = f.ledger.GetAccount(raffleAddress)
	require.ErrorIs(t, err, chain.ErrAccountNotFound)
	account, err := f.ledger.GetAccount(entrants)
	require.NoError(t, err)
	require.Equal(t, make([]byte, EntrantsSpace(3)), account.Data)

	_, err = f.program.Initialize(ctx, params, chain.NewSigners(f.admin), 1, start+10, 3)
	require.NoError(t, err)

	// One ledger backs at most one raffle.
	_, err = f.program.Initialize(ctx, params, chain.NewSigners(f.admin), 1, start+10, 3)
	require.Error(t, err)
}

func TestInitializeRejectsForeignEntrantsRegion(t *testing.T) {
	f := newProgramFixture(t)
	foreign := newKey(t)
	f.run(t, func(tx chain.Store) error {
		_, err := chain.CreateAccount(tx, chain.NewSigners(f.admin, foreign), f.admin, foreign, EntrantsSpace(2), chain.SystemProgramID)
		return err
	})

	_, err := f.program.Initialize(context.Background(), InitializeAccounts{
		Authority:    f.admin,
		Entrants:     foreign,
		ProceedsMint: f.mint,
	}, chain.NewSigners(f.admin), 1, start+10, 2)
	require.ErrorIs(t, err, chain.ErrIllegalOwner)
}

func TestSellOutThenClose(t *testing.T) {
	f := newProgramFixture(t)
	ctx := context.Background()
	r := f.newRaffle(t, 100, start+1000, 3)
	buyers := []buyer{f.newBuyer(t, 1000), f.newBuyer(t, 1000), f.newBuyer(t, 1000)}

	for i, b := range buyers {
		require.NoError(t, f.buy(r, b, 1))
		require.Equal(t, uint32(i+1), f.total(t, r))
	}
	late := f.newBuyer(t, 1000)
	require.ErrorIs(t, f.buy(r, late, 1), ErrNotEnoughTicketsLeft)
	require.Equal(t, uint32(3), f.total(t, r))
	require.Equal(t, uint64(1000), f.balance(t, late.account))
	require.Equal(t, uint64(300), f.balance(t, r.Proceeds))

	f.clock.Set(start + 500)
	closable, err := f.program.Closable(ctx, r.Raffle)
	require.NoError(t, err)
	require.True(t, closable)

	before, err := f.ledger.GetAccount(f.admin)
	require.NoError(t, err)
	require.NoError(t, f.close(r, f.admin, f.adminProceeds))
	require.Equal(t, uint64(300), f.balance(t, f.adminProceeds))

	for _, address := range []solana.PublicKey{r.Raffle, r.Entrants, r.Proceeds} {
		_, err := f.ledger.GetAccount(address)
		require.ErrorIs(t, err, chain.ErrAccountNotFound)
	}
	after, err := f.ledger.GetAccount(f.admin)
	require.NoError(t, err)
	deposits := chain.MinimumBalance(RaffleSize) + chain.MinimumBalance(EntrantsSpace(3)) + chain.MinimumBalance(token.AccountSize)
	require.Equal(t, before.Lamports+deposits, after.Lamports)

	infos, err := f.program.ListRaffles(ctx)
	require.NoError(t, err)
	require.Empty(t, infos)
}

func TestBuyBatchExceedingCapacityIsRejectedWhole(t *testing.T) {
	f := newProgramFixture(t)
	r := f.newRaffle(t, 100, start+1000, 3)
	first, second := f.newBuyer(t, 1000), f.newBuyer(t, 1000)
	require.NoError(t, f.buy(r, first, 2))

	require.ErrorIs(t, f.buy(r, second, 2), ErrNotEnoughTicketsLeft)
	require.Equal(t, uint32(2), f.total(t, r))
	require.Equal(t, uint64(1000), f.balance(t, second.account))
	require.Equal(t, uint64(200), f.balance(t, r.Proceeds))
}

func TestBuyRecordsTicketsInOrder(t *testing.T) {
	f := newProgramFixture(t)
	ctx := context.Background()
	r := f.newRaffle(t, 7, start+1000, 10)
	alice, bob := f.newBuyer(t, 100), f.newBuyer(t, 100)

	require.NoError(t, f.buy(r, alice, 2))
	require.NoError(t, f.buy(r, bob, 1))
	require.NoError(t, f.buy(r, alice, 0))

	entrants, err := f.program.Entrants(ctx, r.Entrants)
	require.NoError(t, err)
	require.Equal(t, []solana.PublicKey{alice.owner, alice.owner, bob.owner}, entrants)

	third, err := f.program.Entrant(ctx, r.Entrants, 2)
	require.NoError(t, err)
	require.Equal(t, bob.owner, third)
	_, err = f.program.Entrant(ctx, r.Entrants, 3)
	require.ErrorIs(t, err, ErrEntrantIndexOutOfRange)

	require.Equal(t, uint64(21), f.balance(t, r.Proceeds))
	require.Equal(t, uint64(86), f.balance(t, alice.account))
}

func TestBuyCreditsTokenAccountOwner(t *testing.T) {
	f := newProgramFixture(t)
	r := f.newRaffle(t, 5, start+1000, 2)
	holder := f.newBuyer(t, 50)

	// The paying signer is the account owner; the ticket goes to that owner.
	require.NoError(t, f.buy(r, holder, 1))
	entrant, err := f.program.Entrant(context.Background(), r.Entrants, 0)
	require.NoError(t, err)
	require.Equal(t, holder.owner, entrant)

	// Someone else cannot spend the holder's balance.
	thief := newKey(t)
	err = f.program.Buy(context.Background(), BuyAccounts{
		Raffle:            r.Raffle,
		Entrants:          r.Entrants,
		BuyerTokenAccount: holder.account,
		Buyer:             thief,
	}, chain.NewSigners(thief), 1)
	require.ErrorIs(t, err, token.ErrOwnerMismatch)
	require.Equal(t, uint32(1), f.total(t, r))
}

func TestBuyDeadlineGate(t *testing.T) {
	f := newProgramFixture(t)
	r := f.newRaffle(t, 1, start+100, 10)
	b := f.newBuyer(t, 100)

	f.clock.Set(start + 99)
	require.NoError(t, f.buy(r, b, 1))

	f.clock.Set(start + 100)
	require.ErrorIs(t, f.buy(r, b, 1), ErrRaffleEnded)

	f.clock.Set(start + 5000)
	require.ErrorIs(t, f.buy(r, b, 1), ErrRaffleEnded)
	require.Equal(t, uint32(1), f.total(t, r))
}

func TestBuyOverflowIsInvalidCalculation(t *testing.T) {
	f := newProgramFixture(t)
	r := f.newRaffle(t, math.MaxUint64, start+100, 4)
	b := f.newBuyer(t, 100)

	require.ErrorIs(t, f.buy(r, b, 2), ErrInvalidCalculation)
	require.Zero(t, f.total(t, r))
	require.Equal(t, uint64(100), f.balance(t, b.account))
}

func TestBuyFailedPaymentLeavesNoTickets(t *testing.T) {
	f := newProgramFixture(t)
	r := f.newRaffle(t, 100, start+100, 4)
	poor := f.newBuyer(t, 150)

	require.ErrorIs(t, f.buy(r, poor, 2), token.ErrInsufficientFunds)
	require.Zero(t, f.total(t, r))

	err := f.program.Buy(context.Background(), BuyAccounts{
		Raffle:            r.Raffle,
		Entrants:          r.Entrants,
		BuyerTokenAccount: poor.account,
		Buyer:             poor.owner,
	}, chain.Signers{}, 1)
	require.ErrorIs(t, err, chain.ErrMissingSignature)
	require.Zero(t, f.total(t, r))
	require.Equal(t, uint64(150), f.balance(t, poor.account))
}

func TestBuyRejectsMismatchedEntrants(t *testing.T) {
	f := newProgramFixture(t)
	first := f.newRaffle(t, 1, start+100, 2)
	second := f.newRaffle(t, 1, start+100, 2)
	b := f.newBuyer(t, 10)

	err := f.program.Buy(context.Background(), BuyAccounts{
		Raffle:            first.Raffle,
		Entrants:          second.Entrants,
		BuyerTokenAccount: b.account,
		Buyer:             b.owner,
	}, chain.NewSigners(b.owner), 1)
	require.ErrorIs(t, err, ErrEntrantsMismatch)
	require.Zero(t, f.total(t, first))
	require.Zero(t, f.total(t, second))
}

func TestCloseGate(t *testing.T) {
	f := newProgramFixture(t)
	r := f.newRaffle(t, 10, start+100, 5)
	b := f.newBuyer(t, 100)
	require.NoError(t, f.buy(r, b, 2))

	require.ErrorIs(t, f.close(r, f.admin, f.adminProceeds), ErrRaffleStillRunning)

	f.clock.Set(start + 100)
	require.ErrorIs(t, f.close(r, f.admin, f.adminProceeds), ErrRaffleStillRunning)
	require.Equal(t, uint64(20), f.balance(t, r.Proceeds))
	require.Equal(t, uint32(2), f.total(t, r))

	f.clock.Set(start + 101)
	require.NoError(t, f.close(r, f.admin, f.adminProceeds))
	require.Equal(t, uint64(20), f.balance(t, f.adminProceeds))
}

func TestCloseEmptyRaffleAfterDeadline(t *testing.T) {
	f := newProgramFixture(t)
	r := f.newRaffle(t, 10, start+100, 5)
	f.clock.Set(start + 101)
	require.NoError(t, f.close(r, f.admin, f.adminProceeds))
	require.Zero(t, f.balance(t, f.adminProceeds))
}

func TestClosePreconditions(t *testing.T) {
	f := newProgramFixture(t)
	r := f.newRaffle(t, 10, start+100, 1)
	other := f.newRaffle(t, 10, start+100, 1)
	require.NoError(t, f.buy(r, f.newBuyer(t, 10), 1))
	stranger := newKey(t)

	require.ErrorIs(t, f.close(r, stranger, f.adminProceeds), ErrUnauthorized)

	err := f.program.Close(context.Background(), CloseAccounts{
		Raffle:            r.Raffle,
		Entrants:          r.Entrants,
		AuthorityProceeds: f.adminProceeds,
		Authority:         f.admin,
	}, chain.Signers{})
	require.ErrorIs(t, err, ErrUnauthorized)

	err = f.program.Close(context.Background(), CloseAccounts{
		Raffle:            r.Raffle,
		Entrants:          other.Entrants,
		AuthorityProceeds: f.adminProceeds,
		Authority:         f.admin,
	}, chain.NewSigners(f.admin))
	require.ErrorIs(t, err, ErrEntrantsMismatch)

	strangerProceeds := f.tokenAccount(t, stranger, 0)
	require.ErrorIs(t, f.close(r, f.admin, strangerProceeds), ErrProceedsOwnerMismatch)

	require.Equal(t, uint64(10), f.balance(t, r.Proceeds))
	require.NoError(t, f.close(r, f.admin, f.adminProceeds))
	require.ErrorIs(t, f.close(r, f.admin, f.adminProceeds), chain.ErrAccountNotFound)
}

func TestEscrowConservation(t *testing.T) {
	f := newProgramFixture(t)
	r := f.newRaffle(t, 25, start+100, 50)
	amounts := []uint32{3, 1, 7, 2, 5}
	var sum uint64
	for _, amount := range amounts {
		require.NoError(t, f.buy(r, f.newBuyer(t, 1000), amount))
		sum += 25 * uint64(amount)
		require.Equal(t, sum, f.balance(t, r.Proceeds))
	}

	f.clock.Set(start + 101)
	require.NoError(t, f.close(r, f.admin, f.adminProceeds))
	require.Equal(t, sum, f.balance(t, f.adminProceeds))
}

func TestConcurrentBuysNeverExceedCapacity(t *testing.T) {
	f := newProgramFixture(t)
	const capacity = 10
	r := f.newRaffle(t, 1, start+100, capacity)

	buyers := make([]buyer, 25)
	for i := range buyers {
		buyers[i] = f.newBuyer(t, 5)
	}

	var wg sync.WaitGroup
	errs := make([]error, len(buyers))
	for i, b := range buyers {
		wg.Add(1)
		go func(i int, b buyer) {
			defer wg.Done()
			errs[i] = f.buy(r, b, 1)
		}(i, b)
	}
	wg.Wait()

	sold := 0
	for _, err := range errs {
		if err == nil {
			sold++
			continue
		}
		require.ErrorIs(t, err, ErrNotEnoughTicketsLeft)
	}
	require.Equal(t, capacity, sold)
	require.Equal(t, uint32(capacity), f.total(t, r))
	require.Equal(t, uint64(capacity), f.balance(t, r.Proceeds))
}

func TestEventsCarryAttributes(t *testing.T) {
	f := newProgramFixture(t)
	r := f.newRaffle(t, 4, start+100, 3)
	b := f.newBuyer(t, 100)
	require.NoError(t, f.buy(r, b, 3))

	f.events.mu.Lock()
	defer f.events.mu.Unlock()
	last := f.events.events[len(f.events.events)-1]
	require.Equal(t, EventTypeTicketsPurchased, last.Type)
	require.NotEmpty(t, last.TransactionID)
	require.Equal(t, start, last.Timestamp)
	require.Equal(t, b.owner.String(), last.Attributes["entrant"])
	require.Equal(t, "3", last.Attributes["amount"])
	require.Equal(t, "12", last.Attributes["cost"])
	require.Equal(t, "3", last.Attributes["total"])

	ids := make(map[string]struct{})
	for _, event := range f.events.events {
		ids[event.TransactionID] = struct{}{}
	}
	require.Len(t, ids, len(f.events.events))
}

func TestRejectedOperationsEmitNothing(t *testing.T) {
	f := newProgramFixture(t)
	r := f.newRaffle(t, 4, start+100, 1)
	count := len(f.events.types())

	require.ErrorIs(t, f.close(r, f.admin, f.adminProceeds), ErrRaffleStillRunning)
	require.ErrorIs(t, f.buy(r, f.newBuyer(t, 100), 2), ErrNotEnoughTicketsLeft)
	require.Len(t, f.events.types(), count)
}

func TestCancelledContextRejectsOperation(t *testing.T) {
	f := newProgramFixture(t)
	r := f.newRaffle(t, 4, start+100, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := f.newBuyer(t, 100)
	err := f.program.Buy(ctx, BuyAccounts{
		Raffle:            r.Raffle,
		Entrants:          r.Entrants,
		BuyerTokenAccount: b.account,
		Buyer:             b.owner,
	}, chain.NewSigners(b.owner), 1)
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, f.total(t, r))
}
