package store_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/personachat/backend/internal/model/chat"
	"github.com/personachat/backend/internal/store"
)

// Both implementations must satisfy the same contract, so every test runs
// against each of them.
func storesUnderTest(t *testing.T) map[string]store.Store {
	t.Helper()

	sqlite, err := store.OpenSQLite(filepath.Join(t.TempDir(), "test.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })

	return map[string]store.Store{
		"memory": store.NewMemory(),
		"sqlite": sqlite,
	}
}

func newSession(privateID string, isControl bool) chat.Session {
	return chat.Session{
		PrivateID:   privateID,
		Personality: "test personality",
		Traits:      []string{"tim", "tim", "abi", "abi", "tim"},
		IsControl:   isControl,
	}
}

func TestCreateAndFind(t *testing.T) {
	for name, s := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Create(ctx, newSession("alpha", true)))

			got, err := s.FindByID(ctx, "alpha")
			require.NoError(t, err)
			assert.Equal(t, "alpha", got.PrivateID)
			assert.Equal(t, "test personality", got.Personality)
			assert.Equal(t, []string{"tim", "tim", "abi", "abi", "tim"}, got.Traits)
			assert.True(t, got.IsControl)
		})
	}
}

func TestCreateDuplicateFails(t *testing.T) {
	for name, s := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Create(ctx, newSession("alpha", true)))

			second := newSession("alpha", false)
			second.Personality = "different personality"
			err := s.Create(ctx, second)
			require.ErrorIs(t, err, store.ErrDuplicateSession)

			// First write is untouched.
			got, err := s.FindByID(ctx, "alpha")
			require.NoError(t, err)
			assert.Equal(t, "test personality", got.Personality)
			assert.True(t, got.IsControl)
		})
	}
}

func TestFindMissingSession(t *testing.T) {
	for name, s := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.FindByID(context.Background(), "ghost")
			require.ErrorIs(t, err, store.ErrSessionNotFound)
		})
	}
}

func TestAppendToMissingSession(t *testing.T) {
	for name, s := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.AppendMessage(context.Background(), "ghost", "hello", chat.SenderUser, "")
			require.ErrorIs(t, err, store.ErrSessionNotFound)
		})
	}
}

func TestHistoryOfMissingSession(t *testing.T) {
	for name, s := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.RecentHistory(context.Background(), "ghost", 10, nil)
			require.ErrorIs(t, err, store.ErrSessionNotFound)
		})
	}
}

func TestAppendTimestampsStrictlyIncrease(t *testing.T) {
	for name, s := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Create(ctx, newSession("alpha", false)))

			var previous time.Time
			for i := 0; i < 20; i++ {
				msg, err := s.AppendMessage(ctx, "alpha", fmt.Sprintf("m%d", i), chat.SenderUser, "")
				require.NoError(t, err)
				if i > 0 {
					assert.True(t, msg.CreatedAt.After(previous),
						"message %d timestamp %v not after %v", i, msg.CreatedAt, previous)
				}
				previous = msg.CreatedAt
			}
		})
	}
}

func TestTailWindow(t *testing.T) {
	for name, s := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Create(ctx, newSession("alpha", false)))
			for i := 0; i < 55; i++ {
				_, err := s.AppendMessage(ctx, "alpha", fmt.Sprintf("m%d", i), chat.SenderUser, "")
				require.NoError(t, err)
			}

			window, err := s.RecentHistory(ctx, "alpha", 50, nil)
			require.NoError(t, err)
			require.Len(t, window, 50)

			// Chronological: the window starts at message 5 and ends at 54.
			assert.Equal(t, "m5", window[0].Content)
			assert.Equal(t, "m54", window[49].Content)
			assert.True(t, window[0].CreatedAt.Before(window[49].CreatedAt))
		})
	}
}

func TestBackwardPaginationChainsWithoutGapOrDuplicate(t *testing.T) {
	for name, s := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Create(ctx, newSession("alpha", false)))
			for i := 0; i < 55; i++ {
				_, err := s.AppendMessage(ctx, "alpha", fmt.Sprintf("m%d", i), chat.SenderUser, "")
				require.NoError(t, err)
			}

			tail, err := s.RecentHistory(ctx, "alpha", 20, nil)
			require.NoError(t, err)
			require.Len(t, tail, 20)

			collected := append([]chat.Message(nil), tail...)
			for {
				before := collected[0].CreatedAt
				page, err := s.RecentHistory(ctx, "alpha", 20, &before)
				require.NoError(t, err)
				if len(page) == 0 {
					break
				}
				// Every paged message is strictly older than the cursor.
				for _, m := range page {
					assert.True(t, m.CreatedAt.Before(before))
				}
				collected = append(page, collected...)
			}

			require.Len(t, collected, 55)
			seen := make(map[string]bool, len(collected))
			for i, m := range collected {
				assert.Equal(t, fmt.Sprintf("m%d", i), m.Content)
				assert.False(t, seen[m.ID], "duplicate message %s", m.ID)
				seen[m.ID] = true
			}
		})
	}
}

func TestPaginationExcludesCursorTimestamp(t *testing.T) {
	for name, s := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Create(ctx, newSession("alpha", false)))

			var messages []chat.Message
			for i := 0; i < 30; i++ {
				msg, err := s.AppendMessage(ctx, "alpha", fmt.Sprintf("m%d", i), chat.SenderUser, "")
				require.NoError(t, err)
				messages = append(messages, msg)
			}

			cursor := messages[29].CreatedAt
			page, err := s.RecentHistory(ctx, "alpha", 100, &cursor)
			require.NoError(t, err)
			require.Len(t, page, 29)
			assert.Equal(t, "m28", page[28].Content)
		})
	}
}

func TestCounts(t *testing.T) {
	for name, s := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			total, control, err := s.Counts(ctx)
			require.NoError(t, err)
			assert.Zero(t, total)
			assert.Zero(t, control)

			require.NoError(t, s.Create(ctx, newSession("a", true)))
			require.NoError(t, s.Create(ctx, newSession("b", false)))
			require.NoError(t, s.Create(ctx, newSession("c", true)))

			total, control, err = s.Counts(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(3), total)
			assert.Equal(t, int64(2), control)
		})
	}
}

func TestReplyToIsStoredVerbatim(t *testing.T) {
	for name, s := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Create(ctx, newSession("alpha", false)))

			first, err := s.AppendMessage(ctx, "alpha", "question", chat.SenderUser, "")
			require.NoError(t, err)
			_, err = s.AppendMessage(ctx, "alpha", "answer", chat.SenderBot, first.ID)
			require.NoError(t, err)
			// Dangling references are stored, never resolved.
			_, err = s.AppendMessage(ctx, "alpha", "aside", chat.SenderUser, "no-such-message")
			require.NoError(t, err)

			window, err := s.RecentHistory(ctx, "alpha", 10, nil)
			require.NoError(t, err)
			require.Len(t, window, 3)
			assert.Empty(t, window[0].ReplyTo)
			assert.Equal(t, first.ID, window[1].ReplyTo)
			assert.Equal(t, "no-such-message", window[2].ReplyTo)
		})
	}
}
