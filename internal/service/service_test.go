package service

// Тесты сервисного слоя на моках стораджа: валидация входов, порядок проверок
// авторизации и маппинг ошибок storage -> service.
//
// Моки:
//   mockgen -source=./internal/storage/storage.go -destination=./mocks/storage.go -package=mocks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/pribylovaa/wedding-guestbook/internal/config"
	"github.com/pribylovaa/wedding-guestbook/internal/models"
	"github.com/pribylovaa/wedding-guestbook/internal/storage"
	"github.com/pribylovaa/wedding-guestbook/internal/validation"
	"github.com/pribylovaa/wedding-guestbook/mocks"
	"github.com/stretchr/testify/require"
)

var testLimits = config.LimitsConfig{
	Default:       2,
	Max:           5,
	MessageMaxLen: 1000,
	NameMaxLen:    100,
	BulkMax:       3,
}

var fixedNow = time.Date(2026, 6, 20, 18, 0, 0, 0, time.UTC)

func moderator() *models.Operator {
	return &models.Operator{ID: "op-1", Name: "Anna", Capabilities: []string{models.CapabilityModerate}}
}

// newServiceWithMocks — поднимает сервис с моками стораджа.
func newServiceWithMocks(t *testing.T) (*Service, *mocks.MockStorage) {
	t.Helper()
	ctrl := gomock.NewController(t)
	ms := mocks.NewMockStorage(ctrl)
	return New(ms, testLimits, WithClock(func() time.Time { return fixedNow })), ms
}

func TestSubmit_ValidationListsFields(t *testing.T) {
	s, _ := newServiceWithMocks(t)

	_, err := s.Submit(context.Background(), SubmitInput{GuestName: " ", GuestEmail: "bad", Message: ""})
	require.ErrorIs(t, err, ErrValidation)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))

	fields := map[string]string{}
	for _, f := range verr.Fields {
		fields[f.Field] = f.Code
	}
	require.Equal(t, map[string]string{
		validation.FieldGuestName:  validation.CodeRequired,
		validation.FieldGuestEmail: validation.CodeEmail,
		validation.FieldMessage:    validation.CodeRequired,
	}, fields)
}

func TestSubmit_ForcesPendingAndTrims(t *testing.T) {
	s, ms := newServiceWithMocks(t)

	ms.EXPECT().
		CreateMessage(gomock.Any(), models.GuestMessage{
			GuestName: "Boris",
			Message:   "Be happy!",
			Status:    models.StatusPending,
		}).
		Return(&models.GuestMessage{ID: "m1", GuestName: "Boris", Message: "Be happy!", Status: models.StatusPending}, nil)

	got, err := s.Submit(context.Background(), SubmitInput{GuestName: " Boris ", Message: " Be happy! "})
	require.NoError(t, err)
	require.Equal(t, "m1", got.ID)
}

func TestSubmit_StorageError(t *testing.T) {
	s, ms := newServiceWithMocks(t)

	ms.EXPECT().CreateMessage(gomock.Any(), gomock.Any()).Return(nil, errors.New("connection refused"))

	_, err := s.Submit(context.Background(), SubmitInput{GuestName: "Boris", Message: "hi"})
	require.ErrorIs(t, err, ErrInternal)
	require.NotContains(t, err.Error(), "connection refused")
}

// Авторизация проверяется до аргументов и до обращения к хранилищу.
func TestModerate_AuthorizationFirst(t *testing.T) {
	s, _ := newServiceWithMocks(t)
	ctx := context.Background()

	err := s.Moderate(ctx, ModerateInput{Operator: nil, ID: "", Action: "bogus"})
	require.ErrorIs(t, err, ErrUnauthenticated)

	guest := &models.Operator{ID: "op-2", Capabilities: []string{"guestbook:read"}}
	err = s.Moderate(ctx, ModerateInput{Operator: guest, ID: "m1", Action: models.ActionApprove})
	require.ErrorIs(t, err, ErrForbidden)
}

func TestModerate_InvalidArguments(t *testing.T) {
	s, _ := newServiceWithMocks(t)
	ctx := context.Background()

	require.ErrorIs(t, s.Moderate(ctx, ModerateInput{Operator: moderator(), ID: "m1", Action: "publish"}), ErrInvalidArgument)
	require.ErrorIs(t, s.Moderate(ctx, ModerateInput{Operator: moderator(), ID: "  ", Action: models.ActionApprove}), ErrInvalidArgument)
}

func TestModerate_StampsMetadata(t *testing.T) {
	s, ms := newServiceWithMocks(t)
	note := "  so sweet  "
	want := "so sweet"

	ms.EXPECT().
		UpdateStatus(gomock.Any(), "m1", models.StatusApproved, models.Moderation{At: fixedNow, By: "op-1", Note: &want}).
		Return(&models.GuestMessage{ID: "m1", Status: models.StatusApproved}, nil)

	require.NoError(t, s.Moderate(context.Background(), ModerateInput{
		Operator: moderator(), ID: "m1", Action: models.ActionApprove, Note: &note,
	}))
}

func TestModerate_EmptyNoteIsNil(t *testing.T) {
	s, ms := newServiceWithMocks(t)
	blank := "   "

	ms.EXPECT().
		UpdateStatus(gomock.Any(), "m1", models.StatusRejected, models.Moderation{At: fixedNow, By: "op-1"}).
		Return(&models.GuestMessage{ID: "m1"}, nil)

	require.NoError(t, s.Moderate(context.Background(), ModerateInput{
		Operator: moderator(), ID: "m1", Action: models.ActionReject, Note: &blank,
	}))
}

func TestModerate_ErrorMapping(t *testing.T) {
	s, ms := newServiceWithMocks(t)
	ctx := context.Background()

	ms.EXPECT().DeleteMessage(gomock.Any(), "gone").Return(storage.ErrNotFound)
	require.ErrorIs(t, s.Moderate(ctx, ModerateInput{Operator: moderator(), ID: "gone", Action: models.ActionDelete}), ErrNotFound)

	ms.EXPECT().UpdateStatus(gomock.Any(), "m1", models.StatusApproved, gomock.Any()).Return(nil, errors.New("db down"))
	err := s.Moderate(ctx, ModerateInput{Operator: moderator(), ID: "m1", Action: models.ActionApprove})
	require.ErrorIs(t, err, ErrInternal)

	ms.EXPECT().UpdateStatus(gomock.Any(), "m2", models.StatusRejected, gomock.Any()).Return(nil, storage.ErrInvalidArgument)
	err = s.Moderate(ctx, ModerateInput{Operator: moderator(), ID: "m2", Action: models.ActionReject})
	require.ErrorIs(t, err, ErrInvalidArgument)
	require.NotErrorIs(t, err, ErrInternal)
}

func TestBulkModerate_BatchFatalAuthorization(t *testing.T) {
	s, _ := newServiceWithMocks(t)

	_, err := s.BulkModerate(context.Background(), BulkModerateInput{IDs: []string{"a"}, Action: models.ActionApprove})
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestBulkModerate_SizeLimits(t *testing.T) {
	s, _ := newServiceWithMocks(t)
	ctx := context.Background()

	_, err := s.BulkModerate(ctx, BulkModerateInput{Operator: moderator(), Action: models.ActionApprove})
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = s.BulkModerate(ctx, BulkModerateInput{Operator: moderator(), IDs: []string{"a", "b", "c", "d"}, Action: models.ActionApprove})
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = s.BulkModerate(ctx, BulkModerateInput{Operator: moderator(), IDs: []string{"a"}, Action: "archive"})
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestBulkModerate_PerItemReasonsAndDedupe(t *testing.T) {
	s, ms := newServiceWithMocks(t)

	gomock.InOrder(
		ms.EXPECT().DeleteMessage(gomock.Any(), "a").Return(nil),
		ms.EXPECT().DeleteMessage(gomock.Any(), "ghost").Return(storage.ErrNotFound),
		ms.EXPECT().DeleteMessage(gomock.Any(), "b").Return(errors.New("timeout")),
	)

	res, err := s.BulkModerate(context.Background(), BulkModerateInput{
		Operator: moderator(),
		IDs:      []string{"a", "ghost", "a", " b ", "b"},
		Action:   models.ActionDelete,
	})
	require.NoError(t, err)
	require.Equal(t, 1, res.Successful)
	require.Equal(t, []models.BulkFailure{
		{ID: "ghost", Reason: ReasonNotFound},
		{ID: "b", Reason: ReasonInternal},
	}, res.Failed)
}

func TestLike_Validation(t *testing.T) {
	s, _ := newServiceWithMocks(t)
	ctx := context.Background()

	_, err := s.Like(ctx, "m1", "  ")
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = s.Unlike(ctx, "", "c1")
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestLike_ErrorMapping(t *testing.T) {
	s, ms := newServiceWithMocks(t)
	ctx := context.Background()

	ms.EXPECT().AddLike(gomock.Any(), "pending", "c1").Return(int64(0), storage.ErrNotApproved)
	_, err := s.Like(ctx, "pending", "c1")
	require.ErrorIs(t, err, ErrNotFound)

	ms.EXPECT().AddLike(gomock.Any(), "ghost", "c1").Return(int64(0), storage.ErrNotFound)
	_, err = s.Like(ctx, "ghost", "c1")
	require.ErrorIs(t, err, ErrNotFound)

	ms.EXPECT().RemoveLike(gomock.Any(), "m1", "c1").Return(int64(0), errors.New("boom"))
	_, err = s.Unlike(ctx, "m1", "c1")
	require.ErrorIs(t, err, ErrInternal)

	ms.EXPECT().AddLike(gomock.Any(), "m1", "c1").Return(int64(3), nil)
	n, err := s.Like(ctx, "m1", "c1")
	require.NoError(t, err)
	require.EqualValues(t, 3, n)
}

func TestList_Normalization(t *testing.T) {
	s, ms := newServiceWithMocks(t)

	ms.EXPECT().
		ListMessages(gomock.Any(), models.ListQuery{
			Status: models.FilterApproved,
			SortBy: models.SortNewest,
			Search: "anna",
			Limit:  2,
		}).
		Return(&models.Page{Items: []models.GuestMessage{{ID: "1"}, {ID: "2"}}, Total: 3}, nil)

	page, err := s.List(context.Background(), nil, models.Filters{Search: " anna "})
	require.NoError(t, err)
	require.NotEmpty(t, page.NextPageToken)

	ms.EXPECT().
		ListMessages(gomock.Any(), models.ListQuery{
			Status: models.FilterApproved,
			SortBy: models.SortNewest,
			Search: "anna",
			Limit:  2,
			Offset: 2,
		}).
		Return(&models.Page{Items: []models.GuestMessage{{ID: "3"}}, Total: 3}, nil)

	page, err = s.List(context.Background(), nil, models.Filters{Search: "anna", PageToken: page.NextPageToken})
	require.NoError(t, err)
	require.Empty(t, page.NextPageToken)
}

func TestList_PageSizeClamped(t *testing.T) {
	s, ms := newServiceWithMocks(t)

	ms.EXPECT().
		ListMessages(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, q models.ListQuery) (*models.Page, error) {
			require.EqualValues(t, 5, q.Limit)
			return &models.Page{Items: []models.GuestMessage{}}, nil
		})

	_, err := s.List(context.Background(), nil, models.Filters{PageSize: 500})
	require.NoError(t, err)
}

func TestList_Errors(t *testing.T) {
	s, ms := newServiceWithMocks(t)
	ctx := context.Background()

	_, err := s.List(ctx, nil, models.Filters{Status: models.FilterPending})
	require.ErrorIs(t, err, ErrUnauthenticated)

	_, err = s.List(ctx, &models.Operator{ID: "x"}, models.Filters{Status: models.FilterAll})
	require.ErrorIs(t, err, ErrForbidden)

	_, err = s.List(ctx, nil, models.Filters{Status: "archived"})
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = s.List(ctx, nil, models.Filters{SortBy: "random"})
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = s.List(ctx, nil, models.Filters{PageToken: "%%%"})
	require.ErrorIs(t, err, ErrInvalidCursor)

	// Токен, выданный под другой фильтр, не принимается.
	token := encodePageToken(2, models.ListQuery{Status: models.FilterAll, SortBy: models.SortNewest})
	_, err = s.List(ctx, nil, models.Filters{PageToken: token})
	require.ErrorIs(t, err, ErrInvalidCursor)

	ms.EXPECT().ListMessages(gomock.Any(), gomock.Any()).Return(nil, errors.New("down"))
	_, err = s.List(ctx, nil, models.Filters{})
	require.ErrorIs(t, err, ErrInternal)
}

func TestStats_OperatorOnly(t *testing.T) {
	s, ms := newServiceWithMocks(t)
	ctx := context.Background()

	_, err := s.Stats(ctx, nil)
	require.ErrorIs(t, err, ErrUnauthenticated)

	ms.EXPECT().Stats(gomock.Any()).Return(&models.Stats{TotalMessages: 2, ApprovedMessages: 1, ApprovalRate: 0.5}, nil)
	st, err := s.Stats(ctx, moderator())
	require.NoError(t, err)
	require.Equal(t, 0.5, st.ApprovalRate)
}

func TestSetHighlighted(t *testing.T) {
	s, ms := newServiceWithMocks(t)
	ctx := context.Background()

	_, err := s.SetHighlighted(ctx, HighlightInput{ID: "m1", Highlighted: true})
	require.ErrorIs(t, err, ErrUnauthenticated)

	ms.EXPECT().SetHighlighted(gomock.Any(), "m1", true).Return(&models.GuestMessage{ID: "m1", IsHighlighted: true}, nil)
	msg, err := s.SetHighlighted(ctx, HighlightInput{Operator: moderator(), ID: "m1", Highlighted: true})
	require.NoError(t, err)
	require.True(t, msg.IsHighlighted)

	ms.EXPECT().SetHighlighted(gomock.Any(), "gone", false).Return(nil, storage.ErrNotFound)
	_, err = s.SetHighlighted(ctx, HighlightInput{Operator: moderator(), ID: "gone"})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMessageByID(t *testing.T) {
	s, ms := newServiceWithMocks(t)
	ctx := context.Background()

	_, err := s.MessageByID(ctx, nil, "m1")
	require.ErrorIs(t, err, ErrUnauthenticated)

	ms.EXPECT().MessageByID(gomock.Any(), "gone").Return(nil, storage.ErrNotFound)
	_, err = s.MessageByID(ctx, moderator(), "gone")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPageToken_RoundTrip(t *testing.T) {
	q := models.ListQuery{Status: models.FilterApproved, SortBy: models.SortMostLiked, Search: "Anna"}

	got, err := decodePageToken(encodePageToken(40, q), q)
	require.NoError(t, err)
	require.EqualValues(t, 40, got)

	// Регистр поиска на отпечаток не влияет.
	q2 := q
	q2.Search = "anna"
	_, err = decodePageToken(encodePageToken(40, q), q2)
	require.NoError(t, err)
}
