package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ViksyAsenov/poly-talk/internal/bus"
	apperrors "github.com/ViksyAsenov/poly-talk/internal/errors"
	"github.com/ViksyAsenov/poly-talk/internal/model"
)

func TestSend(t *testing.T) {
	ctx := context.Background()

	t.Run("stores the message and fans out per participant language", func(t *testing.T) {
		f := newFixture()
		en := int64(1)
		bg := int64(2)
		f.users.addUser(1, &en)
		f.users.addUser(2, &bg)
		f.users.befriend(1, 2)
		conv, err := f.convService.CreateDirect(ctx, 1, 2)
		require.NoError(t, err)
		f.router.userPushes = nil

		data, err := f.msgService.Send(ctx, 1, conv.ID, "hello")
		require.NoError(t, err)
		assert.Equal(t, "hello", data.Content)
		assert.Equal(t, "hello", data.DisplayContent)
		assert.False(t, data.IsTranslated)
		require.NotNil(t, f.messages.messages)
		stored := f.messages.messages[0]
		require.NotNil(t, stored.OriginalLanguageID)
		assert.Equal(t, en, *stored.OriginalLanguageID)

		require.Len(t, f.router.userPushes, 2)
		for _, p := range f.router.userPushes {
			assert.Equal(t, bus.EventMessageNew, p.Event)
		}
	})

	t.Run("recipient view is translated, sender view is not", func(t *testing.T) {
		f := newFixture()
		en := int64(1)
		bg := int64(2)
		f.users.addUser(1, &en)
		f.users.addUser(2, &bg)
		f.users.befriend(1, 2)
		conv, err := f.convService.CreateDirect(ctx, 1, 2)
		require.NoError(t, err)
		f.router.userPushes = nil

		data, err := f.msgService.Send(ctx, 1, conv.ID, "hello")
		require.NoError(t, err)
		f.gateway.translations[translationKey(data.ID, bg)] = "здравей"

		// 历史视角验证翻译路径
		page, err := f.msgService.History(ctx, 2, conv.ID, time.Time{})
		require.NoError(t, err)
		require.Len(t, page, 1)
		assert.Equal(t, "здравей", page[0].DisplayContent)
		assert.Equal(t, "hello", page[0].Content)
		assert.True(t, page[0].IsTranslated)
	})

	t.Run("rejects blank content", func(t *testing.T) {
		f := newFixture()
		f.users.addUser(1, nil)
		f.users.addUser(2, nil)
		f.users.befriend(1, 2)
		conv, err := f.convService.CreateDirect(ctx, 1, 2)
		require.NoError(t, err)

		_, err = f.msgService.Send(ctx, 1, conv.ID, "   ")
		assert.ErrorIs(t, err, apperrors.ErrInvalidMessageData)
	})

	t.Run("rejects non-participants", func(t *testing.T) {
		f := newFixture()
		f.users.addUser(1, nil)
		f.users.addUser(2, nil)
		f.users.addUser(3, nil)
		f.users.befriend(1, 2)
		conv, err := f.convService.CreateDirect(ctx, 1, 2)
		require.NoError(t, err)

		_, err = f.msgService.Send(ctx, 3, conv.ID, "hi")
		assert.ErrorIs(t, err, apperrors.ErrNotParticipant)
	})

	t.Run("direct conversation goes read-only after unfriending", func(t *testing.T) {
		f := newFixture()
		f.users.addUser(1, nil)
		f.users.addUser(2, nil)
		f.users.befriend(1, 2)
		conv, err := f.convService.CreateDirect(ctx, 1, 2)
		require.NoError(t, err)

		f.users.unfriend(1, 2)
		_, err = f.msgService.Send(ctx, 1, conv.ID, "hi")
		assert.ErrorIs(t, err, apperrors.ErrNotFriends)

		// 历史仍可读
		_, err = f.msgService.History(ctx, 1, conv.ID, time.Time{})
		assert.NoError(t, err)
	})
}

func TestHistory(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*fixture, int64) {
		t.Helper()
		f := newFixture()
		f.users.addUser(1, nil)
		f.users.addUser(2, nil)
		f.users.befriend(1, 2)
		conv, err := f.convService.CreateDirect(ctx, 1, 2)
		require.NoError(t, err)
		return f, conv.ID
	}

	t.Run("returns at most one page, oldest first", func(t *testing.T) {
		f, convID := setup(t)
		base := time.Now().Add(-time.Hour)
		for i := 0; i < 30; i++ {
			require.NoError(t, f.messages.Create(ctx, &model.Message{
				ID:             int64(1000 + i),
				ConversationID: convID,
				SenderID:       1,
				Content:        "m",
				CreatedAt:      base.Add(time.Duration(i) * time.Second),
			}))
		}

		page, err := f.msgService.History(ctx, 2, convID, time.Time{})
		require.NoError(t, err)
		require.Len(t, page, 25)
		// 最新的 25 条，按时间升序
		assert.Equal(t, int64(1005), page[0].ID)
		assert.Equal(t, int64(1029), page[len(page)-1].ID)
		for i := 1; i < len(page); i++ {
			assert.False(t, page[i].CreatedAt.Before(page[i-1].CreatedAt))
		}
	})

	t.Run("before cursor pages further back", func(t *testing.T) {
		f, convID := setup(t)
		base := time.Now().Add(-time.Hour)
		for i := 0; i < 30; i++ {
			require.NoError(t, f.messages.Create(ctx, &model.Message{
				ID:             int64(1000 + i),
				ConversationID: convID,
				SenderID:       1,
				Content:        "m",
				CreatedAt:      base.Add(time.Duration(i) * time.Second),
			}))
		}

		page, err := f.msgService.History(ctx, 2, convID, base.Add(4*time.Second))
		require.NoError(t, err)
		require.Len(t, page, 5)
		assert.Equal(t, int64(1000), page[0].ID)
		assert.Equal(t, int64(1004), page[len(page)-1].ID)
	})

	t.Run("rejects non-participants", func(t *testing.T) {
		f, convID := setup(t)
		f.users.addUser(3, nil)
		_, err := f.msgService.History(ctx, 3, convID, time.Time{})
		assert.ErrorIs(t, err, apperrors.ErrNotParticipant)
	})
}

func TestDeleteMessage(t *testing.T) {
	ctx := context.Background()

	setupGroup := func(t *testing.T) (*fixture, int64) {
		t.Helper()
		f := newFixture()
		for id := int64(1); id <= 3; id++ {
			f.users.addUser(id, nil)
		}
		f.users.befriend(1, 2)
		f.users.befriend(1, 3)
		conv, err := f.convService.CreateGroup(ctx, 1, "Crew", []int64{2, 3})
		require.NoError(t, err)
		f.router.roomPushes = nil
		return f, conv.ID
	}

	t.Run("sender deletes their own message", func(t *testing.T) {
		f, convID := setupGroup(t)
		data, err := f.msgService.Send(ctx, 2, convID, "oops")
		require.NoError(t, err)

		require.NoError(t, f.msgService.Delete(ctx, 2, data.ID))
		assert.Contains(t, f.messages.deleted, data.ID)
		require.NotEmpty(t, f.router.roomPushes)
		assert.Equal(t, bus.EventMessageDeleted, f.router.roomPushes[len(f.router.roomPushes)-1].Event)
	})

	t.Run("admin deletes somebody else's message", func(t *testing.T) {
		f, convID := setupGroup(t)
		data, err := f.msgService.Send(ctx, 2, convID, "spam")
		require.NoError(t, err)

		require.NoError(t, f.msgService.Delete(ctx, 1, data.ID))
		assert.Contains(t, f.messages.deleted, data.ID)
	})

	t.Run("sender deletes their own message after leaving the group", func(t *testing.T) {
		f, convID := setupGroup(t)
		data, err := f.msgService.Send(ctx, 2, convID, "bye")
		require.NoError(t, err)
		require.NoError(t, f.convService.Leave(ctx, 2, convID))

		require.NoError(t, f.msgService.Delete(ctx, 2, data.ID))
		assert.Contains(t, f.messages.deleted, data.ID)
	})

	t.Run("non-participant cannot delete somebody else's message", func(t *testing.T) {
		f, convID := setupGroup(t)
		f.users.addUser(4, nil)
		data, err := f.msgService.Send(ctx, 2, convID, "hi")
		require.NoError(t, err)

		err = f.msgService.Delete(ctx, 4, data.ID)
		assert.ErrorIs(t, err, apperrors.ErrNotParticipant)
	})

	t.Run("plain member cannot delete others", func(t *testing.T) {
		f, convID := setupGroup(t)
		data, err := f.msgService.Send(ctx, 2, convID, "mine")
		require.NoError(t, err)

		err = f.msgService.Delete(ctx, 3, data.ID)
		assert.ErrorIs(t, err, apperrors.ErrNotAdmin)
	})

	t.Run("unknown message", func(t *testing.T) {
		f, _ := setupGroup(t)
		err := f.msgService.Delete(ctx, 1, 424242)
		assert.ErrorIs(t, err, apperrors.ErrMessageNotFound)
	})
}
