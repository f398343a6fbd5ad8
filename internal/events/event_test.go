package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/duthaho/trello-clone-sub000/internal/config"
)

func TestNewStampsIdentity(t *testing.T) {
	a := New(TaskAssigned, 1, 2, 3, map[string]string{KeyAssigneeID: "9"})
	b := New(TaskAssigned, 1, 2, 3, nil)

	require.NotEmpty(t, a.ID)
	require.NotEqual(t, a.ID, b.ID)
	require.False(t, a.OccurredAt.IsZero())
	require.Equal(t, int64(9), a.IDValue(KeyAssigneeID))
}

func TestIDValueTolerantOfMissingValues(t *testing.T) {
	ev := Event{Payload: map[string]string{KeyCreatorID: "x"}}
	require.Zero(t, ev.IDValue(KeyCreatorID))
	require.Zero(t, ev.IDValue(KeyAssigneeID))
	require.Zero(t, Event{}.IDValue(KeyUserID))
}

func TestFormatID(t *testing.T) {
	id := int64(12)
	require.Equal(t, "12", FormatID(&id))
	require.Equal(t, "", FormatID(nil))
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	require.NoError(t, p.Publish(context.Background(), New(TaskCreated, 1, 1, 1, nil)))
	require.NoError(t, p.Close())
}

func TestKafkaPublisherNoEventsIsNoop(t *testing.T) {
	p := NewKafkaPublisher(configWithBrokers("localhost:9092"))
	require.NoError(t, p.Publish(context.Background()))
	require.NoError(t, p.Close())
}

func configWithBrokers(brokers ...string) config.KafkaConfig {
	return config.KafkaConfig{Brokers: brokers, Topic: "task-events", GroupID: "test"}
}
