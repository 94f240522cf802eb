package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ngochieu276/slack-clone/internal/auth"
	"github.com/ngochieu276/slack-clone/internal/blob"
	"github.com/ngochieu276/slack-clone/internal/config"
	"github.com/ngochieu276/slack-clone/internal/search"
	"github.com/ngochieu276/slack-clone/internal/session"
	"github.com/ngochieu276/slack-clone/internal/store"
)

// Session is the resolved identity of a caller. The zero value is anonymous.
type Session struct {
	Token     string
	UserID    string
	UserName  string
	JTI       string
	ExpiresAt time.Time
}

func (s Session) Authenticated() bool {
	return s.UserID != ""
}

type dataStore interface {
	Ping(ctx context.Context) error

	GetUser(context.Context, string) (store.User, error)
	UpsertUser(context.Context, store.User) error

	ListWorkspacesForUser(context.Context, string) ([]store.Workspace, error)
	GetWorkspace(context.Context, string) (store.Workspace, error)
	GetWorkspaceByJoinCode(context.Context, string) (store.Workspace, error)
	InsertWorkspace(context.Context, store.Workspace) error
	UpdateWorkspaceName(context.Context, string, string) error
	UpdateJoinCode(context.Context, string, string) error
	DeleteWorkspace(context.Context, string) error

	GetMember(context.Context, string) (store.Member, error)
	GetMemberByWorkspaceUser(context.Context, string, string) (store.Member, error)
	ListMembers(context.Context, string) ([]store.Member, error)
	InsertMember(context.Context, store.Member) error
	UpdateMemberRole(context.Context, string, string) error
	TouchMemberOnline(context.Context, string, time.Time) error
	DeleteMemberCascade(context.Context, string) (store.CascadeResult, error)

	GetPreferenceByMember(context.Context, string, string) (store.MemberPreference, error)
	GetPreferenceByUserWorkspace(context.Context, string, string) (store.MemberPreference, error)
	InsertPreference(context.Context, store.MemberPreference) error
	UpdatePreferenceProfile(context.Context, string, store.PreferenceProfile) error
	UpdatePreferenceImage(context.Context, string, string) error
	UpdatePreferenceNavigation(context.Context, string, []string) error

	ListChannels(context.Context, string) ([]store.Channel, error)
	GetChannel(context.Context, string) (store.Channel, error)
	InsertChannel(context.Context, store.Channel) error
	UpdateChannelName(context.Context, string, string) error
	DeleteChannel(context.Context, string) ([]string, error)

	GetConversation(context.Context, string) (store.Conversation, error)
	FindConversation(context.Context, string, string, string) (store.Conversation, error)
	ListConversationsForMember(context.Context, string, string) ([]store.Conversation, error)
	InsertConversation(context.Context, store.Conversation) error

	GetMessage(context.Context, string) (store.Message, error)
	ListMessages(context.Context, store.MessageScope, string, int) (store.MessagePage, error)
	InsertMessage(context.Context, store.Message) error
	UpdateMessageBody(context.Context, string, string, time.Time) error
	DeleteMessage(context.Context, string) ([]string, error)
	ThreadSummary(context.Context, string) (store.ThreadSummary, error)
	ListThreadAuthors(context.Context, string) ([]string, error)

	ListReactions(context.Context, string) ([]store.Reaction, error)
	FindReaction(context.Context, string, string, string) (store.Reaction, error)
	InsertReaction(context.Context, store.Reaction) error
	DeleteReaction(context.Context, string) error

	InsertNotification(context.Context, store.Notification) error
	ListNotifications(context.Context, store.NotificationFilter) ([]store.Notification, error)
	ListDirectNotifications(context.Context, string, string, bool) ([]store.Notification, error)
	MarkNotificationsRead(context.Context, store.MarkReadFilter) ([]string, error)
	CountUnread(context.Context, string, string) (int, error)

	GetSavedLater(context.Context, string) (store.SavedLater, error)
	FindSavedLater(context.Context, string, string) (store.SavedLater, error)
	InsertSavedLater(context.Context, store.SavedLater) error
	UpdateSavedLaterStatus(context.Context, string, store.SavedLaterStatus) error
	DeleteSavedLater(context.Context, string) error
	ListSavedLater(context.Context, string, store.SavedLaterStatus) ([]store.SavedLater, error)
}

// sessionStore holds presence and revoked tokens.
type sessionStore interface {
	TouchPresence(ctx context.Context, workspaceID, memberID string, seenAt time.Time) error
	LastSeen(ctx context.Context, workspaceID, memberID string) (session.PresenceData, bool, error)
	RevokeToken(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
	Ping(ctx context.Context) error
}

type messageIndex interface {
	Search(ctx context.Context, q search.Query) search.Response
	IndexMessage(record search.MessageRecord)
	DeleteMessages(ids ...string)
}

// Deps are the collaborators of a Service. Sessions and Search may be nil.
type Deps struct {
	Store    dataStore
	Sessions sessionStore
	Blobs    blob.Resolver
	Search   messageIndex
	Logger   zerolog.Logger
}

type Service struct {
	cfg      config.Config
	store    dataStore
	sessions sessionStore
	blobs    blob.Resolver
	search   messageIndex
	log      zerolog.Logger
	now      func() time.Time
}

func New(cfg config.Config, deps Deps) *Service {
	blobs := deps.Blobs
	if blobs == nil {
		blobs = blob.StaticResolver{DefaultAvatarURL: cfg.DefaultAvatar}
	}
	return &Service{
		cfg:      cfg,
		store:    deps.Store,
		sessions: deps.Sessions,
		blobs:    blobs,
		search:   deps.Search,
		log:      deps.Logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Ping(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if s.sessions != nil {
		if err := s.sessions.Ping(ctx); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

// SessionFromToken verifies a bearer token and loads the user it names. Users
// seen for the first time are provisioned from the token claims.
func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}
	if s.cfg.JWTIssuer != "" && claims.Issuer != s.cfg.JWTIssuer {
		return Session{}, auth.ErrInvalidToken
	}
	if s.sessions != nil {
		revoked, err := s.sessions.IsRevoked(ctx, claims.ID)
		if err != nil {
			return Session{}, err
		}
		if revoked {
			return Session{}, auth.ErrInvalidToken
		}
	}

	user, err := s.store.GetUser(ctx, claims.Subject)
	if errors.Is(err, sql.ErrNoRows) {
		user = store.User{ID: claims.Subject, Name: claims.Name}
		if err := s.store.UpsertUser(ctx, user); err != nil {
			return Session{}, err
		}
	} else if err != nil {
		return Session{}, err
	}

	return Session{
		Token:     token,
		UserID:    user.ID,
		UserName:  user.Name,
		JTI:       claims.ID,
		ExpiresAt: claims.Expiry(),
	}, nil
}

func (s *Service) Logout(ctx context.Context, session Session) error {
	if s.sessions == nil || session.JTI == "" {
		return nil
	}
	return s.sessions.RevokeToken(ctx, session.JTI, session.ExpiresAt)
}

func (s *Service) pageSize(requested int) int {
	return s.cfg.PageSize(requested)
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
