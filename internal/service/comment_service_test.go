package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	dom "github.com/duthaho/trello-clone-sub000/internal/domain"
	"github.com/duthaho/trello-clone-sub000/internal/events"
)

func TestCommentService_Lifecycle(t *testing.T) {
	b := newBoard(t)
	ctx := WithRequestMeta(context.Background(), RequestMeta{Username: "member"})
	task, err := b.tasks.Create(ctx, b.owner.ID, b.project.ID, CreateTaskInput{Title: "discuss", AssigneeID: &b.owner.ID})
	require.NoError(t, err)
	b.pub.reset()

	c, err := b.comments.Add(ctx, b.member.ID, task.ID, "  " + strings.Repeat("word ", 40) + " ")
	require.NoError(t, err)
	require.Equal(t, b.member.ID, c.AuthorID)
	require.Equal(t, "member", c.AuthorUsername)

	require.Equal(t, []events.Type{events.CommentAdded}, b.pub.types())
	ev := b.pub.evs[0]
	require.Equal(t, task.ID, ev.TaskID)
	require.Equal(t, b.owner.ID, ev.IDValue(events.KeyCreatorID))
	require.True(t, strings.HasSuffix(ev.Payload[events.KeyCommentExcerpt], "…"))

	_, err = b.comments.Add(ctx, b.viewer.ID, task.ID, "hi")
	require.ErrorIs(t, err, dom.ErrForbidden)
	_, err = b.comments.Add(ctx, b.member.ID, task.ID, "   ")
	require.ErrorIs(t, err, dom.ErrInvalidArgument)
	_, err = b.comments.Add(ctx, b.member.ID, task.ID, strings.Repeat("x", 2001))
	require.ErrorIs(t, err, dom.ErrInvalidArgument)

	list, err := b.comments.List(ctx, b.viewer.ID, task.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	_, err = b.comments.List(ctx, b.stranger.ID, task.ID, 0, 0)
	require.ErrorIs(t, err, dom.ErrNotFound)

	_, err = b.comments.Edit(ctx, b.owner.ID, c.ID, "hijack")
	require.ErrorIs(t, err, dom.ErrForbidden)
	edited, err := b.comments.Edit(ctx, b.member.ID, c.ID, "short now")
	require.NoError(t, err)
	require.Equal(t, "short now", edited.Body)

	require.ErrorIs(t, b.comments.Delete(ctx, b.viewer.ID, c.ID), dom.ErrForbidden)
	require.NoError(t, b.comments.Delete(ctx, b.owner.ID, c.ID))
	require.ErrorIs(t, b.comments.Delete(ctx, b.owner.ID, c.ID), dom.ErrNotFound)

	require.Subset(t, b.store.actions(), []string{"comment.created", "comment.updated", "comment.deleted"})
}
