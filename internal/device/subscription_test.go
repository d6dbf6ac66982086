package device

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lifx-monitor/internal/protocol"
)

func TestSubscription_ReceivesChanges(t *testing.T) {
	r, _ := newTestRegistry()
	sub := r.Subscribe(Filter{})

	r.Apply(siteA, &protocol.StateLabel{Label: "Kitchen"})

	select {
	case ev := <-sub.Events():
		assert.Equal(t, siteA, ev.Site)
		assert.True(t, ev.Change.Has(ChangeDiscovered|ChangeLabel))
		assert.Equal(t, "Kitchen", ev.State.Label)
	default:
		t.Fatal("expected an event")
	}
}

func TestSubscription_NoEventForDuplicate(t *testing.T) {
	r, _ := newTestRegistry()
	r.Apply(siteA, &protocol.StateLabel{Label: "Kitchen"})

	sub := r.Subscribe(Filter{})
	r.Apply(siteA, &protocol.StateLabel{Label: "Kitchen"})

	assert.Len(t, sub.Events(), 0)
}

func TestSubscription_Filter(t *testing.T) {
	r, _ := newTestRegistry()
	bySite := r.Subscribe(Filter{Sites: []protocol.Site{siteB}})
	byChange := r.Subscribe(Filter{Changes: ChangeGroup})

	r.Apply(siteA, &protocol.StatePower{Level: 1})
	r.Apply(siteB, &protocol.StatePower{Level: 1})
	r.Apply(siteA, &protocol.StateGroup{Group: groupUp, Label: "Up", UpdatedAt: 1})

	require.Len(t, bySite.Events(), 1)
	assert.Equal(t, siteB, (<-bySite.Events()).Site)

	require.Len(t, byChange.Events(), 1)
	ev := <-byChange.Events()
	assert.Equal(t, siteA, ev.Site)
	assert.Equal(t, "Up", ev.State.Group.Label)
}

func TestSubscription_DropsWhenFull(t *testing.T) {
	r, _ := newTestRegistry()
	sub := r.Subscribe(Filter{Buffer: 1})

	r.Apply(siteA, &protocol.StatePower{Level: 1})
	r.Apply(siteA, &protocol.StatePower{Level: 2})
	r.Apply(siteA, &protocol.StatePower{Level: 3})

	assert.Len(t, sub.Events(), 1)
	assert.Equal(t, uint64(2), sub.Dropped())
}

func TestSubscription_Unsubscribe(t *testing.T) {
	r, _ := newTestRegistry()
	sub := r.Subscribe(Filter{})

	r.Unsubscribe(sub)
	r.Unsubscribe(sub) // second call is a no-op

	_, open := <-sub.Events()
	assert.False(t, open)

	r.Apply(siteA, &protocol.StatePower{Level: 1})
}

func TestRegistry_CloseUnblocksSubscribers(t *testing.T) {
	r, _ := newTestRegistry()
	sub := r.Subscribe(Filter{})

	done := make(chan struct{})
	go func() {
		for range sub.Events() {
		}
		close(done)
	}()

	r.Close()
	<-done

	assert.Equal(t, Change(0), r.Apply(siteA, &protocol.StatePower{Level: 1}))

	late := r.Subscribe(Filter{})
	_, open := <-late.Events()
	assert.False(t, open)

	r.Close()
}

func TestRegistry_PredictNotifies(t *testing.T) {
	r, _ := newTestRegistry()
	r.Apply(siteA, &protocol.StateLabel{Label: "old"})
	sub := r.Subscribe(Filter{Changes: ChangeLabel})

	r.Predict(siteA, &protocol.SetLabel{Label: "new"})

	require.Len(t, sub.Events(), 1)
	ev := <-sub.Events()
	assert.Equal(t, "new", ev.State.Label)
	assert.True(t, ev.State.Predicted.Has(ChangeLabel))
}

func TestRegistry_Groups(t *testing.T) {
	r, _ := newTestRegistry()

	r.Apply(siteA, &protocol.StateGroup{Group: groupUp, Label: "Upstairs", UpdatedAt: 10})
	r.Apply(siteB, &protocol.StateGroup{Group: groupUp, Label: "First floor", UpdatedAt: 20})
	r.Apply(siteC, &protocol.StateGroup{Group: groupDown, Label: "Downstairs", UpdatedAt: 5})

	groups := r.Groups()
	require.Len(t, groups, 2)

	up := groups[groupUp]
	assert.Equal(t, "First floor", up.Label, "most recent label wins")
	assert.Equal(t, uint64(20), up.UpdatedAt)
	assert.Equal(t, []protocol.Site{siteA, siteB}, up.Members)
	assert.True(t, up.Has(siteA))
	assert.False(t, up.Has(siteC))

	down := groups[groupDown]
	assert.Equal(t, "Downstairs", down.Label)
	assert.Equal(t, []protocol.Site{siteC}, down.Members)
}

func TestRegistry_GroupsFollowMoves(t *testing.T) {
	r, _ := newTestRegistry()

	r.Apply(siteA, &protocol.StateGroup{Group: groupUp, Label: "Upstairs", UpdatedAt: 10})
	r.Apply(siteA, &protocol.StateGroup{Group: groupDown, Label: "Downstairs", UpdatedAt: 11})

	groups := r.Groups()
	require.Len(t, groups, 1)
	assert.Contains(t, groups, groupDown)
}

func TestRegistry_Locations(t *testing.T) {
	r, _ := newTestRegistry()
	home := uuid.New()

	r.Apply(siteA, &protocol.StateLocation{Location: home, Label: "Home", UpdatedAt: 1})
	r.Apply(siteB, &protocol.StatePower{Level: 1})

	locations := r.Locations()
	require.Len(t, locations, 1)
	assert.Equal(t, []protocol.Site{siteA}, locations[home].Members)
	assert.Empty(t, r.Groups())
}
