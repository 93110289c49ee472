package ledger

import (
	"context"
	"math/big"
	"math/rand"
	"testing"

	"YieldFarm/internal/model"
	"YieldFarm/internal/registry"
	"YieldFarm/internal/token"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	custody = common.HexToAddress("0xfa4d")
	alice   = common.HexToAddress("0xa11ce")
	bob     = common.HexToAddress("0xb0b")
	tstAddr = common.HexToAddress("0x7357")
	daiAddr = common.HexToAddress("0xda1")
	badAddr = common.HexToAddress("0xbad")
)

type fixture struct {
	ledger *Ledger
	tst    *token.MemLedger
	dai    *token.MemLedger
	bad    *token.MemLedger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	reg := registry.New()
	dir := token.NewDirectory()
	f := &fixture{
		tst: token.NewMemLedger("TST", 18),
		dai: token.NewMemLedger("DAI", 18),
		bad: token.NewMemLedger("BAD", 18),
	}
	dir.Register(tstAddr, f.tst)
	dir.Register(daiAddr, f.dai)
	dir.Register(badAddr, f.bad)
	reg.AddAllowed(model.Asset{Address: tstAddr, Decimals: 18})
	reg.AddAllowed(model.Asset{Address: daiAddr, Decimals: 18})

	for _, u := range []common.Address{alice, bob} {
		for _, l := range []*token.MemLedger{f.tst, f.dai, f.bad} {
			l.Mint(u, big.NewInt(10_000))
			require.NoError(t, l.Approve(context.Background(), u, custody, big.NewInt(10_000)))
		}
	}
	f.ledger = New(custody, reg, dir)
	return f
}

func bal(t *testing.T, l *token.MemLedger, who common.Address) int64 {
	t.Helper()
	b, err := l.BalanceOf(context.Background(), who)
	require.NoError(t, err)
	return b.Int64()
}

func TestStake_FirstStakeEnrollsStaker(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.ledger.Stake(ctx, alice, tstAddr, big.NewInt(100)))

	assert.Equal(t, int64(100), f.ledger.BalanceOf(alice, tstAddr).Int64())
	assert.Equal(t, 1, f.ledger.UniqueAssetCount(alice))
	got, err := f.ledger.StakerAt(0)
	require.NoError(t, err)
	assert.Equal(t, alice, got)
	assert.Equal(t, int64(100), bal(t, f.tst, custody))
}

func TestStake_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.ledger.Stake(ctx, alice, badAddr, big.NewInt(1))
	assert.ErrorIs(t, err, ErrAssetNotAllowed)

	err = f.ledger.Stake(ctx, alice, tstAddr, big.NewInt(0))
	assert.ErrorIs(t, err, ErrZeroAmount)

	err = f.ledger.Stake(ctx, alice, tstAddr, big.NewInt(20_000))
	assert.ErrorIs(t, err, ErrTransferFailed)

	assert.Equal(t, 0, f.ledger.StakerCount())
	assert.Equal(t, 0, f.ledger.UniqueAssetCount(alice))
	assert.Equal(t, int64(0), f.ledger.BalanceOf(alice, tstAddr).Int64())
	assert.Equal(t, int64(10_000), bal(t, f.bad, alice))
	assert.Equal(t, int64(0), bal(t, f.tst, custody))
}

func TestStake_CustodyCannotStake(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.tst.Mint(custody, big.NewInt(100))
	require.NoError(t, f.tst.Approve(ctx, custody, custody, big.NewInt(300)))

	for range 3 {
		err := f.ledger.Stake(ctx, custody, tstAddr, big.NewInt(100))
		assert.ErrorIs(t, err, ErrCustodyStaker)
	}
	assert.Zero(t, f.ledger.TotalStaked(tstAddr).Sign())
	assert.Zero(t, f.ledger.BalanceOf(custody, tstAddr).Sign())
	assert.False(t, f.ledger.IsStaker(custody))
	assert.Equal(t, int64(100), bal(t, f.tst, custody))
}

func TestUnstake_NoStakeFoundCausesNoTransfer(t *testing.T) {
	f := newFixture(t)
	_, err := f.ledger.Unstake(context.Background(), alice, tstAddr)
	assert.ErrorIs(t, err, ErrNoStakeFound)
	assert.Equal(t, int64(10_000), bal(t, f.tst, alice))
}

func TestUnstake_TransferFailureKeepsState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.ledger.Stake(ctx, alice, tstAddr, big.NewInt(100)))

	f.tst.SetFailTransfers(true)
	_, err := f.ledger.Unstake(ctx, alice, tstAddr)
	assert.ErrorIs(t, err, ErrTransferFailed)
	assert.Equal(t, int64(100), f.ledger.BalanceOf(alice, tstAddr).Int64())
	assert.Equal(t, 1, f.ledger.UniqueAssetCount(alice))
	assert.Equal(t, int64(100), f.ledger.TotalStaked(tstAddr).Int64())
}

func TestStakeUnstake_RoundTripRestoresBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	before := bal(t, f.tst, alice)

	require.NoError(t, f.ledger.Stake(ctx, alice, tstAddr, big.NewInt(100)))
	require.NoError(t, f.ledger.Stake(ctx, alice, tstAddr, big.NewInt(50)))
	amt, err := f.ledger.Unstake(ctx, alice, tstAddr)
	require.NoError(t, err)

	assert.Equal(t, int64(150), amt.Int64())
	assert.Equal(t, before, bal(t, f.tst, alice))
	assert.Equal(t, int64(0), f.ledger.BalanceOf(alice, tstAddr).Int64())
	assert.Equal(t, 0, f.ledger.UniqueAssetCount(alice))
	assert.Equal(t, int64(0), bal(t, f.tst, custody))
}

func TestStakerSet_MembershipIsPermanent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.ledger.Stake(ctx, bob, daiAddr, big.NewInt(5)))
	require.NoError(t, f.ledger.Stake(ctx, alice, tstAddr, big.NewInt(5)))
	require.NoError(t, f.ledger.Stake(ctx, bob, tstAddr, big.NewInt(5)))
	_, err := f.ledger.Unstake(ctx, bob, daiAddr)
	require.NoError(t, err)
	_, err = f.ledger.Unstake(ctx, bob, tstAddr)
	require.NoError(t, err)
	require.NoError(t, f.ledger.Stake(ctx, bob, tstAddr, big.NewInt(5)))

	assert.Equal(t, []common.Address{bob, alice}, f.ledger.Stakers())
	_, err = f.ledger.StakerAt(2)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = f.ledger.StakerAt(-1)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	assert.False(t, f.ledger.IsStaker(custody))
}

// Random interleavings across two assets keep balances, counts and totals consistent.
func TestLedger_RandomInterleaving(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))
	users := []common.Address{alice, bob}
	assets := []common.Address{tstAddr, daiAddr}
	expected := map[common.Address]map[common.Address]int64{alice: {}, bob: {}}

	for i := 0; i < 200; i++ {
		u := users[rng.Intn(2)]
		a := assets[rng.Intn(2)]
		if rng.Intn(3) == 0 {
			_, err := f.ledger.Unstake(ctx, u, a)
			if expected[u][a] == 0 {
				assert.ErrorIs(t, err, ErrNoStakeFound)
			} else {
				require.NoError(t, err)
				expected[u][a] = 0
			}
			continue
		}
		n := int64(rng.Intn(20) + 1)
		require.NoError(t, f.ledger.Stake(ctx, u, a, big.NewInt(n)))
		expected[u][a] += n
	}

	for _, a := range assets {
		var sum int64
		for _, u := range users {
			assert.Equal(t, expected[u][a], f.ledger.BalanceOf(u, a).Int64())
			sum += expected[u][a]
		}
		assert.Equal(t, sum, f.ledger.TotalStaked(a).Int64())
		l := f.tst
		if a == daiAddr {
			l = f.dai
		}
		assert.Equal(t, sum, bal(t, l, custody), "custody holds exactly the staked total")
	}
	for _, u := range users {
		positive := 0
		for _, a := range assets {
			if expected[u][a] > 0 {
				positive++
			}
		}
		assert.Equal(t, positive, f.ledger.UniqueAssetCount(u))
		assert.Len(t, f.ledger.AssetsOf(u), positive)
	}
}

func TestRestore_RebuildsDerivedState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.ledger.Stake(ctx, alice, tstAddr, big.NewInt(7)))
	require.NoError(t, f.ledger.Stake(ctx, alice, daiAddr, big.NewInt(3)))
	require.NoError(t, f.ledger.Stake(ctx, bob, tstAddr, big.NewInt(1)))
	_, err := f.ledger.Unstake(ctx, bob, tstAddr)
	require.NoError(t, err)

	g := newFixture(t)
	require.NoError(t, g.ledger.Restore(f.ledger.Stakers(), f.ledger.Records()))

	assert.Equal(t, f.ledger.Stakers(), g.ledger.Stakers())
	assert.Equal(t, 2, g.ledger.UniqueAssetCount(alice))
	assert.Equal(t, 0, g.ledger.UniqueAssetCount(bob))
	assert.Equal(t, int64(7), g.ledger.TotalStaked(tstAddr).Int64())

	dup := append(f.ledger.Records(), f.ledger.Records()[0])
	assert.Error(t, g.ledger.Restore(nil, dup))
}
