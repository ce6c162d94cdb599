package game

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

func testConfig() Config {
	cfg := Config{
		Resources: []ResourceConfig{
			{ID: "rna", Name: "RNA", Capacity: 100, Unlocked: true, ClickYield: 1},
			{ID: "dna", Name: "DNA", Capacity: 10},
			{ID: "protein", Name: "Protein", Capacity: 50, ClickYield: 1},
		},
		Upgrades: []UpgradeConfig{
			{
				ID: "organelle", Name: "Organelle", Cost: map[string]float64{"rna": 15}, CostScalar: 1.5, Unlocked: true,
				Effects: []EffectConfig{{Kind: EffectRate, Resource: "rna", Amount: 1}},
			},
			{
				ID: "membrane", Name: "Cell Membrane", Cost: map[string]float64{"rna": 40}, CostScalar: 1.5, Unlocked: true,
				Effects: []EffectConfig{{Kind: EffectCapacity, Resource: "rna", Amount: 50}},
			},
			{
				ID: "ribosome", Name: "Ribosome", Cost: map[string]float64{"rna": 60, "dna": 2}, CostScalar: 1.5,
				Effects: []EffectConfig{
					{Kind: EffectRate, Resource: "protein", Amount: 0.2},
					{Kind: EffectClick, Resource: "rna", Amount: 1},
				},
			},
		},
		Conversions: []ConversionConfig{
			{ID: "dna", Name: "DNA Sequencing", From: "rna", To: "dna", Cost: 10, Yield: 1},
		},
		UnlockRules: []UnlockRuleConfig{
			{
				Flag: "dnaUnlocked",
				When: ConditionConfig{Resource: "rna", Op: ">=", Value: 10},
				Unlock: []UnlockTargetConfig{
					{Kind: TargetResource, ID: "dna"},
					{Kind: TargetSection, ID: "evolution"},
				},
				Message: "DNA appears.",
			},
			{
				Flag: "proteinUnlocked",
				When: ConditionConfig{Resource: "dna", Op: ">=", Value: 2},
				Unlock: []UnlockTargetConfig{
					{Kind: TargetResource, ID: "protein"},
					{Kind: TargetUpgrade, ID: "ribosome"},
				},
			},
		},
	}
	cfg.applyDefaults()
	return cfg
}

type recorder struct {
	got []Notification
}

func (r *recorder) OnStateChanged(n Notification) { r.got = append(r.got, n) }

func (r *recorder) count(reason Reason) int {
	n := 0
	for _, got := range r.got {
		if got.Reason == reason {
			n++
		}
	}
	return n
}

func newTestEngine(t *testing.T, cfg Config) (*Engine, *recorder) {
	t.Helper()
	e, err := NewEngine(cfg, t0)
	require.NoError(t, err)
	rec := &recorder{}
	e.SetObserver(rec)
	return e, rec
}

func assertBounds(t *testing.T, e *Engine) {
	t.Helper()
	for _, r := range e.state.Resources {
		assert.GreaterOrEqual(t, r.Amount, 0.0, r.ID)
		assert.LessOrEqual(t, r.Amount, r.Capacity, r.ID)
	}
}

func TestPerformClick_TenClicksUnlockDNAOnce(t *testing.T) {
	e, rec := newTestEngine(t, testConfig())

	for i := 0; i < 10; i++ {
		require.NoError(t, e.PerformClick("rna", 1))
	}
	rna, err := e.ResourceView("rna")
	require.NoError(t, err)
	assert.Equal(t, 10.0, rna.Amount)

	dna, err := e.ResourceView("dna")
	require.NoError(t, err)
	assert.True(t, dna.Unlocked)
	assert.Equal(t, 1, rec.count(ReasonUnlock))

	// Threshold still true: no second unlock.
	require.NoError(t, e.PerformClick("rna", 1))
	assert.Equal(t, 1, rec.count(ReasonUnlock))
	assert.Equal(t, 11, rec.count(ReasonClick))

	unlock := rec.got[9+1]
	assert.Equal(t, ReasonClick, rec.got[9].Reason)
	assert.Equal(t, ReasonUnlock, unlock.Reason)
	assert.Equal(t, "dnaUnlocked", unlock.Entity)
	assert.Equal(t, []UnlockTarget{{Kind: TargetResource, ID: "dna"}, {Kind: TargetSection, ID: "evolution"}}, unlock.Unlocked)
	assert.Equal(t, []string{"evolution"}, unlock.Snapshot.Sections)
	assert.True(t, unlock.Snapshot.Flags["dnaUnlocked"])
}

func TestPerformClick_ClampsToCapacity(t *testing.T) {
	e, _ := newTestEngine(t, testConfig())

	require.NoError(t, e.PerformClick("rna", 250))
	rna, _ := e.ResourceView("rna")
	assert.Equal(t, 100.0, rna.Amount)
}

func TestPerformClick_UnknownAndLockedAreNoOps(t *testing.T) {
	e, rec := newTestEngine(t, testConfig())

	assert.ErrorIs(t, e.PerformClick("atp", 1), ErrUnknownEntity)
	assert.ErrorIs(t, e.PerformClick("dna", 1), ErrLockedEntity)

	dna, _ := e.ResourceView("dna")
	assert.Zero(t, dna.Amount)
	assert.Empty(t, rec.got)
}

func TestPerformClick_RejectsNonFiniteAmount(t *testing.T) {
	e, rec := newTestEngine(t, testConfig())
	require.NoError(t, e.PerformClick("rna", 4))

	for _, amt := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		assert.ErrorIs(t, e.PerformClick("rna", amt), ErrInvalidAmount)
	}

	rna, _ := e.ResourceView("rna")
	assert.Equal(t, 4.0, rna.Amount)
	assert.Equal(t, 1, rec.count(ReasonClick))

	require.True(t, e.Tick(time.Second))
	assertBounds(t, e)
}

func TestClamp_NaNFallsToZero(t *testing.T) {
	r := &Resource{Amount: math.NaN(), Capacity: 10}
	clamp(r)
	assert.Zero(t, r.Amount)
}

func TestPurchaseUpgrade_ScalesCostWithCeil(t *testing.T) {
	e, rec := newTestEngine(t, testConfig())
	e.state.Resources["rna"].Amount = 100

	require.NoError(t, e.PurchaseUpgrade("organelle"))
	v, _ := e.UpgradeView("organelle")
	assert.Equal(t, map[string]float64{"rna": 23}, v.Cost)
	assert.Equal(t, 1, v.Count)

	require.NoError(t, e.PurchaseUpgrade("organelle"))
	v, _ = e.UpgradeView("organelle")
	assert.Equal(t, map[string]float64{"rna": 35}, v.Cost)
	assert.Equal(t, 2, v.Count)

	rna, _ := e.ResourceView("rna")
	assert.Equal(t, 62.0, rna.Amount)
	assert.Equal(t, 2, rec.count(ReasonPurchase))
}

func TestPurchaseUpgrade_CostAfterNPurchases(t *testing.T) {
	e, _ := newTestEngine(t, testConfig())
	rna := e.state.Resources["rna"]
	rna.Capacity = 1e9
	rna.Amount = 1e9

	expected := 15.0
	for n := 1; n <= 8; n++ {
		require.NoError(t, e.PurchaseUpgrade("organelle"))
		expected = math.Ceil(expected * 1.5)

		v, _ := e.UpgradeView("organelle")
		assert.Equal(t, expected, v.Cost["rna"], "after %d purchases", n)
	}
	// Compounding, not linear.
	assert.Greater(t, expected, 15*1.5*8)
}

func TestPurchaseUpgrade_InsufficientLeavesStateUnchanged(t *testing.T) {
	e, rec := newTestEngine(t, testConfig())
	e.state.Upgrades["ribosome"].Unlocked = true
	e.state.Resources["dna"].Unlocked = true
	e.state.Resources["rna"].Amount = 100
	e.state.Resources["dna"].Amount = 1

	before := e.Snapshot()
	err := e.PurchaseUpgrade("ribosome")
	require.ErrorIs(t, err, ErrInsufficientResources)
	assert.Contains(t, err.Error(), "dna")

	after := e.Snapshot()
	assert.Equal(t, before.Resources, after.Resources)
	assert.Equal(t, before.Upgrades, after.Upgrades)

	require.Len(t, rec.got, 1)
	assert.Equal(t, ReasonInsufficientFunds, rec.got[0].Reason)
	assert.Equal(t, "ribosome", rec.got[0].Entity)
}

func TestPurchaseUpgrade_UnknownAndLocked(t *testing.T) {
	e, rec := newTestEngine(t, testConfig())
	e.state.Resources["rna"].Amount = 100

	assert.ErrorIs(t, e.PurchaseUpgrade("nucleus"), ErrUnknownEntity)
	assert.ErrorIs(t, e.PurchaseUpgrade("ribosome"), ErrLockedEntity)

	rna, _ := e.ResourceView("rna")
	assert.Equal(t, 100.0, rna.Amount)
	assert.Empty(t, rec.got)
}

func TestPurchaseUpgrade_CapacityBoostIsImmediate(t *testing.T) {
	e, _ := newTestEngine(t, testConfig())
	e.state.Resources["rna"].Amount = 100

	require.NoError(t, e.PurchaseUpgrade("membrane"))
	rna, _ := e.ResourceView("rna")
	assert.Equal(t, 150.0, rna.Capacity)
	assert.Equal(t, 60.0, rna.Amount)
}

func TestPurchaseUpgrade_RateAppliesOnNextTick(t *testing.T) {
	e, _ := newTestEngine(t, testConfig())
	e.state.Resources["rna"].Amount = 15

	require.NoError(t, e.PurchaseUpgrade("organelle"))
	rna, _ := e.ResourceView("rna")
	assert.Zero(t, rna.Rate, "rate is derived lazily by the tick")

	require.True(t, e.Tick(100*time.Millisecond))
	rna, _ = e.ResourceView("rna")
	assert.Equal(t, 1.0, rna.Rate)
	assert.InDelta(t, 0.1, rna.Amount, 1e-9)

	require.True(t, e.Tick(500*time.Millisecond))
	rna, _ = e.ResourceView("rna")
	assert.InDelta(t, 0.6, rna.Amount, 1e-9)
}

func TestTick_MinimumIntervalGate(t *testing.T) {
	e, rec := newTestEngine(t, testConfig())
	e.state.Upgrades["organelle"].Count = 1

	assert.False(t, e.Tick(50*time.Millisecond))
	assert.Zero(t, rec.count(ReasonTick))
	rna, _ := e.ResourceView("rna")
	assert.Zero(t, rna.Amount)

	assert.True(t, e.Tick(50*time.Millisecond))
	assert.Equal(t, 1, rec.count(ReasonTick))
	rna, _ = e.ResourceView("rna")
	assert.InDelta(t, 0.1, rna.Amount, 1e-9)
	assert.Equal(t, t0.Add(100*time.Millisecond), e.LastAdvance())
}

func TestTick_LockedResourceIsNotAdvanced(t *testing.T) {
	e, _ := newTestEngine(t, testConfig())
	e.state.Upgrades["ribosome"].Count = 3

	require.True(t, e.Tick(time.Second))
	protein, _ := e.ResourceView("protein")
	assert.Zero(t, protein.Amount)
	assert.Zero(t, protein.Rate)

	e.state.Resources["protein"].Unlocked = true
	require.True(t, e.Tick(time.Second))
	protein, _ = e.ResourceView("protein")
	assert.InDelta(t, 0.6, protein.Amount, 1e-9)
}

func TestTick_ClampsToCapacity(t *testing.T) {
	e, _ := newTestEngine(t, testConfig())
	e.state.Upgrades["organelle"].Count = 500

	require.True(t, e.Tick(time.Second))
	rna, _ := e.ResourceView("rna")
	assert.Equal(t, 100.0, rna.Amount)
	assert.Equal(t, 500.0, rna.Rate)
}

func TestTick_NegativeRateStopsAtZero(t *testing.T) {
	cfg := testConfig()
	cfg.Upgrades = append(cfg.Upgrades, UpgradeConfig{
		ID: "leak", Cost: map[string]float64{"rna": 1}, CostScalar: 2, Unlocked: true,
		Effects: []EffectConfig{{Kind: EffectRate, Resource: "rna", Amount: -5}},
	})
	e, _ := newTestEngine(t, cfg)
	e.state.Upgrades["leak"].Count = 1
	e.state.Resources["rna"].Amount = 0.2

	require.True(t, e.Tick(100*time.Millisecond))
	rna, _ := e.ResourceView("rna")
	assert.Equal(t, -5.0, rna.Rate)
	assert.Zero(t, rna.Amount)
}

func TestTick_CrossingThresholdUnlocks(t *testing.T) {
	e, rec := newTestEngine(t, testConfig())
	e.state.Upgrades["organelle"].Count = 10

	require.True(t, e.Tick(time.Second))
	dna, _ := e.ResourceView("dna")
	assert.True(t, dna.Unlocked)
	require.Len(t, rec.got, 2)
	assert.Equal(t, ReasonTick, rec.got[0].Reason)
	assert.Equal(t, ReasonUnlock, rec.got[1].Reason)
	assert.Less(t, rec.got[0].Seq, rec.got[1].Seq)
}

func TestAdvance_DerivesElapsedFromLastAdvance(t *testing.T) {
	e, rec := newTestEngine(t, testConfig())

	assert.False(t, e.Advance(t0.Add(50*time.Millisecond)))
	assert.True(t, e.Advance(t0.Add(100*time.Millisecond)))
	assert.Equal(t, t0.Add(100*time.Millisecond), e.LastAdvance())

	assert.False(t, e.Advance(t0.Add(100*time.Millisecond)))
	assert.False(t, e.Advance(t0))
	assert.Equal(t, 1, rec.count(ReasonTick))

	assert.True(t, e.Advance(t0.Add(350*time.Millisecond)))
	assert.Equal(t, t0.Add(350*time.Millisecond), e.LastAdvance())
}

func TestConvert_AtomicAndRequiresUnlock(t *testing.T) {
	e, rec := newTestEngine(t, testConfig())
	e.state.Resources["rna"].Amount = 9

	assert.ErrorIs(t, e.Convert("dna"), ErrLockedEntity)
	assert.ErrorIs(t, e.Convert("atp"), ErrUnknownEntity)

	require.NoError(t, e.PerformClick("rna", 1))
	require.NoError(t, e.Convert("dna"))

	rna, _ := e.ResourceView("rna")
	dna, _ := e.ResourceView("dna")
	assert.Zero(t, rna.Amount)
	assert.Equal(t, 1.0, dna.Amount)
	assert.Equal(t, 1, rec.count(ReasonConversion))

	err := e.PurchaseConversion("rna", "dna", 10)
	assert.ErrorIs(t, err, ErrInsufficientResources)
	dna, _ = e.ResourceView("dna")
	assert.Equal(t, 1.0, dna.Amount)
	assert.Equal(t, 1, rec.count(ReasonInsufficientFunds))
}

func TestPurchaseConversion_RejectsNonPositiveCost(t *testing.T) {
	e, rec := newTestEngine(t, testConfig())
	require.NoError(t, e.PerformClick("rna", 10))
	require.Equal(t, 2, len(rec.got))

	for _, cost := range []float64{-5, 0, math.NaN(), math.Inf(1)} {
		assert.ErrorIs(t, e.PurchaseConversion("rna", "dna", cost), ErrInvalidAmount, "cost %v", cost)
	}
	assert.ErrorIs(t, e.convert("rna", "dna", 1, 0, ""), ErrInvalidAmount)
	assert.ErrorIs(t, e.convert("rna", "dna", 1, math.NaN(), ""), ErrInvalidAmount)

	rna, _ := e.ResourceView("rna")
	dna, _ := e.ResourceView("dna")
	assert.Equal(t, 10.0, rna.Amount)
	assert.Zero(t, dna.Amount)
	assert.Len(t, rec.got, 2)
}

func TestConvert_ChainsIntoLaterUnlock(t *testing.T) {
	e, rec := newTestEngine(t, testConfig())
	e.state.Resources["rna"].Amount = 100
	require.Equal(t, 1, e.CheckUnlocks())

	require.NoError(t, e.Convert("dna"))
	require.NoError(t, e.Convert("dna"))

	protein, _ := e.ResourceView("protein")
	ribosome, _ := e.UpgradeView("ribosome")
	assert.True(t, protein.Unlocked)
	assert.True(t, ribosome.Unlocked)
	assert.True(t, ribosome.Affordable)
	assert.Equal(t, 2, rec.count(ReasonUnlock))
	assert.Zero(t, e.CheckUnlocks())
}

func TestSynthesize_UsesClickBoosts(t *testing.T) {
	e, _ := newTestEngine(t, testConfig())

	require.NoError(t, e.Synthesize("rna"))
	e.state.Upgrades["ribosome"].Count = 2
	require.NoError(t, e.Synthesize("rna"))

	y, err := e.ClickYield("rna")
	require.NoError(t, err)
	assert.Equal(t, 3.0, y)

	rna, _ := e.ResourceView("rna")
	assert.Equal(t, 4.0, rna.Amount)
	assert.ErrorIs(t, e.Synthesize("protein"), ErrLockedEntity)
}

func TestViews_DoNotAliasEngineState(t *testing.T) {
	e, _ := newTestEngine(t, testConfig())

	v, err := e.UpgradeView("organelle")
	require.NoError(t, err)
	v.Cost["rna"] = 1

	snap := e.Snapshot()
	snap.Flags["dnaUnlocked"] = true
	snap.Upgrades[0].Cost["rna"] = 2

	again, _ := e.UpgradeView("organelle")
	assert.Equal(t, 15.0, again.Cost["rna"])
	assert.False(t, e.state.Flags["dnaUnlocked"])

	_, err = e.ResourceView("atp")
	assert.ErrorIs(t, err, ErrUnknownEntity)
	_, err = e.UpgradeView("nucleus")
	assert.ErrorIs(t, err, ErrUnknownEntity)
}

func TestSnapshot_KeepsDisplayOrder(t *testing.T) {
	e, _ := newTestEngine(t, testConfig())

	snap := e.Snapshot()
	ids := make([]string, len(snap.Resources))
	for i, r := range snap.Resources {
		ids[i] = r.ID
	}
	assert.Equal(t, []string{"rna", "dna", "protein"}, ids)
	require.Len(t, snap.Conversions, 1)
	assert.False(t, snap.Conversions[0].Available)
}

func TestEngine_BoundsAndMonotonicUnlockHoldUnderRandomActions(t *testing.T) {
	e, rec := newTestEngine(t, testConfig())
	rng := rand.New(rand.NewSource(7))
	resources := []string{"rna", "dna", "protein"}
	upgrades := []string{"organelle", "membrane", "ribosome"}

	unlocked := map[string]bool{}
	counts := map[string]int{}

	for i := 0; i < 2000; i++ {
		switch rng.Intn(4) {
		case 0:
			_ = e.PerformClick(resources[rng.Intn(len(resources))], rng.Float64()*20)
		case 1:
			_ = e.PurchaseUpgrade(upgrades[rng.Intn(len(upgrades))])
		case 2:
			_ = e.Convert("dna")
		case 3:
			e.Tick(time.Duration(rng.Intn(400)) * time.Millisecond)
		}
		assertBounds(t, e)

		for _, r := range e.Snapshot().Resources {
			if unlocked[r.ID] {
				assert.True(t, r.Unlocked, "%s re-locked", r.ID)
			}
			unlocked[r.ID] = r.Unlocked
		}
		for _, u := range e.Snapshot().Upgrades {
			assert.GreaterOrEqual(t, u.Count, counts[u.ID])
			counts[u.ID] = u.Count
		}
	}

	flagFires := map[string]int{}
	for _, n := range rec.got {
		if n.Reason == ReasonUnlock {
			flagFires[n.Entity]++
		}
	}
	for flag, fires := range flagFires {
		assert.Equal(t, 1, fires, flag)
	}
}
