package service

// Сквозные сценарии и свойства гостевой книги поверх хранилища в памяти.

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/pribylovaa/wedding-guestbook/internal/models"
	"github.com/pribylovaa/wedding-guestbook/internal/storage/memory"
	"github.com/stretchr/testify/require"
)

func newMemoryService(t *testing.T) *Service {
	t.Helper()

	var (
		mu  sync.Mutex
		cur = time.Date(2026, 6, 20, 12, 0, 0, 0, time.UTC)
	)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		cur = cur.Add(time.Second)
		return cur
	}

	st := memory.New().WithClock(clock)
	return New(st, testLimits, WithClock(clock))
}

func submit(t *testing.T, s *Service, name, text string) *models.GuestMessage {
	t.Helper()
	msg, err := s.Submit(context.Background(), SubmitInput{GuestName: name, Message: text})
	require.NoError(t, err)
	return msg
}

func approve(t *testing.T, s *Service, id string) {
	t.Helper()
	require.NoError(t, s.Moderate(context.Background(), ModerateInput{Operator: moderator(), ID: id, Action: models.ActionApprove}))
}

func listAll(t *testing.T, s *Service, viewer *models.Operator, f models.Filters) []models.GuestMessage {
	t.Helper()
	var out []models.GuestMessage
	for {
		page, err := s.List(context.Background(), viewer, f)
		require.NoError(t, err)
		out = append(out, page.Items...)
		if page.NextPageToken == "" {
			return out
		}
		f.PageToken = page.NextPageToken
	}
}

// Сценарий: новое сообщение не видно публично, пока его не одобрят.
func TestScenario_SubmitThenApprove(t *testing.T) {
	s := newMemoryService(t)
	ctx := context.Background()

	msg := submit(t, s, "Anna", "Congrats!")
	require.Equal(t, models.StatusPending, msg.Status)

	page, err := s.List(ctx, nil, models.Filters{})
	require.NoError(t, err)
	require.Empty(t, page.Items)

	note := "lovely"
	require.NoError(t, s.Moderate(ctx, ModerateInput{Operator: moderator(), ID: msg.ID, Action: models.ActionApprove, Note: &note}))

	page, err = s.List(ctx, nil, models.Filters{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)

	got := page.Items[0]
	require.Equal(t, models.StatusApproved, got.Status)
	require.Equal(t, "op-1", got.ModeratedBy)
	require.NotNil(t, got.ModeratedAt)
	require.Equal(t, "lovely", *got.ModeratorNote)
}

// Сценарий: пустое имя — ошибка валидации с полем guestName, ничего не сохранено.
func TestScenario_EmptyNameRejected(t *testing.T) {
	s := newMemoryService(t)

	_, err := s.Submit(context.Background(), SubmitInput{GuestName: "", Message: "hi"})
	require.ErrorIs(t, err, ErrValidation)

	st, err := s.Stats(context.Background(), moderator())
	require.NoError(t, err)
	require.Zero(t, st.TotalMessages)
}

// Сценарий: like идемпотентен, unlike возвращает к нулю.
func TestScenario_LikeUnlike(t *testing.T) {
	s := newMemoryService(t)
	ctx := context.Background()

	msg := submit(t, s, "Anna", "hi")

	_, err := s.Like(ctx, msg.ID, "client-1")
	require.ErrorIs(t, err, ErrNotFound, "pending message cannot be liked")

	approve(t, s, msg.ID)

	n, err := s.Like(ctx, msg.ID, "client-1")
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	n, err = s.Like(ctx, msg.ID, "client-1")
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	n, err = s.Unlike(ctx, msg.ID, "client-1")
	require.NoError(t, err)
	require.Zero(t, n)

	n, err = s.Unlike(ctx, msg.ID, "client-1")
	require.NoError(t, err)
	require.Zero(t, n)
}

// Сценарий: сбой одного id в пакете не мешает остальным.
func TestScenario_BulkPartialFailure(t *testing.T) {
	s := newMemoryService(t)
	ctx := context.Background()

	a := submit(t, s, "Anna", "one")
	b := submit(t, s, "Boris", "two")

	res, err := s.BulkModerate(ctx, BulkModerateInput{
		Operator: moderator(),
		IDs:      []string{a.ID, b.ID, "ghost"},
		Action:   models.ActionApprove,
	})
	require.NoError(t, err)
	require.Equal(t, 2, res.Successful)
	require.Equal(t, []models.BulkFailure{{ID: "ghost", Reason: ReasonNotFound}}, res.Failed)

	page, err := s.List(ctx, nil, models.Filters{})
	require.NoError(t, err)
	require.EqualValues(t, 2, page.Total)
}

// Сценарий: удалённое сообщение пропадает отовсюду, повторная модерация — NotFound.
func TestScenario_DeleteThenModerate(t *testing.T) {
	s := newMemoryService(t)
	ctx := context.Background()

	msg := submit(t, s, "Anna", "hi")
	require.NoError(t, s.Moderate(ctx, ModerateInput{Operator: moderator(), ID: msg.ID, Action: models.ActionDelete}))

	all := listAll(t, s, moderator(), models.Filters{Status: models.FilterAll})
	for _, m := range all {
		require.NotEqual(t, msg.ID, m.ID)
	}

	err := s.Moderate(ctx, ModerateInput{Operator: moderator(), ID: msg.ID, Action: models.ActionApprove})
	require.ErrorIs(t, err, ErrNotFound)

	_, err = s.Unlike(ctx, msg.ID, "c1")
	require.ErrorIs(t, err, ErrNotFound)
}

// Повторная модерация: rejected -> approved и approved -> rejected разрешены.
func TestScenario_Remoderation(t *testing.T) {
	s := newMemoryService(t)
	ctx := context.Background()
	msg := submit(t, s, "Anna", "hi")

	for _, action := range []models.Action{models.ActionReject, models.ActionApprove, models.ActionReject, models.ActionReject} {
		require.NoError(t, s.Moderate(ctx, ModerateInput{Operator: moderator(), ID: msg.ID, Action: action}))
	}

	got, err := s.MessageByID(ctx, moderator(), msg.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusRejected, got.Status)
}

// Свойство: при любом чередовании like/unlike likes == |likedBy| и дублей нет.
func TestProperty_LikesMatchLikedBy(t *testing.T) {
	s := newMemoryService(t)
	ctx := context.Background()

	msg := submit(t, s, "Anna", "hi")
	approve(t, s, msg.ID)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			r := rand.New(rand.NewSource(seed))
			for i := 0; i < 100; i++ {
				client := fmt.Sprintf("client-%d", r.Intn(6))
				if r.Intn(2) == 0 {
					_, _ = s.Like(ctx, msg.ID, client)
				} else {
					_, _ = s.Unlike(ctx, msg.ID, client)
				}
			}
		}(int64(w))
	}
	wg.Wait()

	got, err := s.MessageByID(ctx, moderator(), msg.ID)
	require.NoError(t, err)
	require.EqualValues(t, len(got.LikedBy), got.Likes)

	seen := map[string]struct{}{}
	for _, c := range got.LikedBy {
		_, dup := seen[c]
		require.False(t, dup)
		seen[c] = struct{}{}
	}
}

// Свойство: анонимная выдача содержит только одобренные, в нужном порядке, без потерь при пагинации.
func TestProperty_PublicListingOrderAndPaging(t *testing.T) {
	s := newMemoryService(t)
	ctx := context.Background()

	var approved []string
	for i := 0; i < 7; i++ {
		msg := submit(t, s, fmt.Sprintf("Guest %d", i), fmt.Sprintf("wish %d", i))
		if i%3 != 0 {
			approve(t, s, msg.ID)
			approved = append(approved, msg.ID)
		}
	}

	// Лайки: последний одобренный получает больше всех.
	last := approved[len(approved)-1]
	for _, c := range []string{"x", "y", "z"} {
		_, err := s.Like(ctx, last, c)
		require.NoError(t, err)
	}
	_, err := s.Like(ctx, approved[0], "x")
	require.NoError(t, err)

	newest := listAll(t, s, nil, models.Filters{SortBy: models.SortNewest})
	require.Len(t, newest, len(approved))
	for i := 1; i < len(newest); i++ {
		require.Equal(t, models.StatusApproved, newest[i].Status)
		require.False(t, newest[i].SubmittedAt.After(newest[i-1].SubmittedAt))
	}

	oldest := listAll(t, s, nil, models.Filters{SortBy: models.SortOldest})
	require.Equal(t, approved, ids(oldest))

	liked := listAll(t, s, nil, models.Filters{SortBy: models.SortMostLiked})
	require.Equal(t, last, liked[0].ID)
	require.Equal(t, approved[0], liked[1].ID)
	for i := 1; i < len(liked); i++ {
		require.LessOrEqual(t, liked[i].Likes, liked[i-1].Likes)
	}
}

// Свойство: при равных лайках mostLiked отдаёт более новые раньше, и постраничный обход
// с page_size=1 даёт тот же порядок.
func TestProperty_MostLikedTiesNewestFirst(t *testing.T) {
	s := newMemoryService(t)
	ctx := context.Background()

	var msgs []*models.GuestMessage
	for i := 0; i < 4; i++ {
		msg := submit(t, s, fmt.Sprintf("Guest %d", i), fmt.Sprintf("wish %d", i))
		approve(t, s, msg.ID)
		msgs = append(msgs, msg)
	}

	for _, id := range []string{msgs[0].ID, msgs[2].ID} {
		_, err := s.Like(ctx, id, "client-1")
		require.NoError(t, err)
	}

	want := []string{msgs[2].ID, msgs[0].ID, msgs[3].ID, msgs[1].ID}

	whole := listAll(t, s, nil, models.Filters{SortBy: models.SortMostLiked})
	require.Equal(t, want, ids(whole))

	paged := listAll(t, s, nil, models.Filters{SortBy: models.SortMostLiked, PageSize: 1})
	require.Equal(t, want, ids(paged))
}

func TestProperty_SearchAndStatusFilters(t *testing.T) {
	s := newMemoryService(t)
	ctx := context.Background()

	a := submit(t, s, "Anna", "Congratulations")
	b := submit(t, s, "Boris", "Anna and Max forever")
	c := submit(t, s, "Clara", "cheers")
	approve(t, s, a.ID)
	require.NoError(t, s.Moderate(ctx, ModerateInput{Operator: moderator(), ID: c.ID, Action: models.ActionReject}))

	found := listAll(t, s, moderator(), models.Filters{Status: models.FilterAll, Search: "ANNA"})
	require.ElementsMatch(t, []string{a.ID, b.ID}, ids(found))

	pending := listAll(t, s, moderator(), models.Filters{Status: models.FilterPending})
	require.Equal(t, []string{b.ID}, ids(pending))

	rejected := listAll(t, s, moderator(), models.Filters{Status: models.FilterRejected})
	require.Equal(t, []string{c.ID}, ids(rejected))

	public := listAll(t, s, nil, models.Filters{Search: "anna"})
	require.Equal(t, []string{a.ID}, ids(public))

	st, err := s.Stats(ctx, moderator())
	require.NoError(t, err)
	require.EqualValues(t, 3, st.TotalMessages)
	require.EqualValues(t, 1, st.ApprovedMessages)
	require.EqualValues(t, 1, st.PendingMessages)
	require.EqualValues(t, 1, st.RejectedMessages)
	require.InDelta(t, 1.0/3.0, st.ApprovalRate, 1e-9)
}

func ids(items []models.GuestMessage) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}
