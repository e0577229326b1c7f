package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"

	"ciphercomms/internal/domain"
	cerrors "ciphercomms/internal/errors"
)

// DefaultPollInterval is how often subscriptions poll the relay.
const DefaultPollInterval = 2 * time.Second

// Client talks to a relay Server. It implements the directory, conversation
// and message store interfaces.
type Client struct {
	base  string
	http  *http.Client
	poll  time.Duration
	tries uint
	log   zerolog.Logger
}

// ClientOption customises a Client.
type ClientOption func(*Client)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) ClientOption { return func(c *Client) { c.http = hc } }

// WithPollInterval sets how often subscriptions refresh.
func WithPollInterval(d time.Duration) ClientOption { return func(c *Client) { c.poll = d } }

// WithMaxTries bounds attempts per request, including the first.
func WithMaxTries(n uint) ClientOption { return func(c *Client) { c.tries = n } }

// WithClientLogger sets the logger.
func WithClientLogger(log zerolog.Logger) ClientOption { return func(c *Client) { c.log = log } }

// NewClient returns a Client for the relay at base, e.g. "http://localhost:8080".
func NewClient(base string, opts ...ClientOption) *Client {
	c := &Client{
		base:  strings.TrimRight(base, "/"),
		http:  http.DefaultClient,
		poll:  DefaultPollInterval,
		tries: 4,
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) PublicKey(ctx context.Context, user domain.UserID) (domain.ExportedPublicKey, bool, error) {
	rec, ok, err := c.Profile(ctx, user)
	if err != nil || !ok || rec.PublicKey == nil {
		return domain.ExportedPublicKey{}, false, err
	}
	return *rec.PublicKey, true, nil
}

func (c *Client) SetPublicKey(ctx context.Context, user domain.UserID, key domain.ExportedPublicKey) error {
	return c.do(ctx, http.MethodPut, "/users/"+url.PathEscape(string(user))+"/key", nil, key, nil)
}

func (c *Client) Profile(ctx context.Context, user domain.UserID) (domain.UserRecord, bool, error) {
	var rec domain.UserRecord
	err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(string(user)), nil, nil, &rec)
	return found(rec, err, cerrors.ErrUserNotFound)
}

func (c *Client) PutProfile(ctx context.Context, rec domain.UserRecord) error {
	return c.do(ctx, http.MethodPut, "/users/"+url.PathEscape(string(rec.ID)), nil, rec, nil)
}

func (c *Client) LookupEmail(ctx context.Context, email string) (domain.UserRecord, bool, error) {
	var rec domain.UserRecord
	err := c.do(ctx, http.MethodGet, "/users?email="+url.QueryEscape(email), nil, nil, &rec)
	return found(rec, err, cerrors.ErrUserNotFound)
}

// WatchUser polls the user's record and delivers it whenever it changes.
func (c *Client) WatchUser(ctx context.Context, user domain.UserID) (<-chan domain.UserRecord, domain.Unsubscribe, error) {
	fetch := func(ctx context.Context) (domain.UserRecord, error) {
		rec, ok, err := c.Profile(ctx, user)
		if err == nil && !ok {
			rec = domain.UserRecord{ID: user}
		}
		return rec, err
	}
	return subscribe(ctx, c, fetch, sameUser)
}

func (c *Client) CreateConversation(ctx context.Context, participants []domain.UserID) (domain.Conversation, error) {
	var conv domain.Conversation
	err := c.do(ctx, http.MethodPost, "/chats", nil, createConversationRequest{Participants: participants}, &conv)
	return conv, err
}

func (c *Client) GetConversation(ctx context.Context, id domain.ConversationID) (domain.Conversation, bool, error) {
	var conv domain.Conversation
	err := c.do(ctx, http.MethodGet, "/chats/"+url.PathEscape(string(id)), nil, nil, &conv)
	return found(conv, err, cerrors.ErrConversationNotFound)
}

func (c *Client) FindConversation(ctx context.Context, participants []domain.UserID) (domain.Conversation, bool, error) {
	want := domain.SortedParticipants(participants...)
	if len(want) == 0 {
		return domain.Conversation{}, false, nil
	}
	convs, err := c.ListConversations(ctx, want[0])
	if err != nil {
		return domain.Conversation{}, false, err
	}
	for _, conv := range convs {
		if slices.Equal(conv.Participants, want) {
			return conv, true, nil
		}
	}
	return domain.Conversation{}, false, nil
}

func (c *Client) ListConversations(ctx context.Context, user domain.UserID) ([]domain.Conversation, error) {
	var convs []domain.Conversation
	err := c.do(ctx, http.MethodGet, "/chats?participant="+url.QueryEscape(string(user)), nil, nil, &convs)
	return convs, err
}

func (c *Client) SetLastMessage(ctx context.Context, id domain.ConversationID, last *domain.LastMessage) error {
	return c.do(ctx, http.MethodPut, "/chats/"+url.PathEscape(string(id))+"/last", nil, setLastMessageRequest{LastMessage: last}, nil)
}

func (c *Client) AppendMessage(ctx context.Context, rec domain.MessageRecord) (domain.MessageRecord, error) {
	var stored domain.MessageRecord
	err := c.do(ctx, http.MethodPost, messagesPath(rec.ConversationID), nil, rec, &stored)
	return stored, err
}

func (c *Client) ListMessages(ctx context.Context, conv domain.ConversationID, limit int) ([]domain.MessageRecord, error) {
	path := messagesPath(conv)
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var recs []domain.MessageRecord
	err := c.do(ctx, http.MethodGet, path, nil, nil, &recs)
	return recs, err
}

func (c *Client) GetMessage(ctx context.Context, conv domain.ConversationID, id domain.MessageID) (domain.MessageRecord, bool, error) {
	recs, err := c.ListMessages(ctx, conv, 0)
	if err != nil {
		return domain.MessageRecord{}, false, err
	}
	i := slices.IndexFunc(recs, func(r domain.MessageRecord) bool { return r.ID == id })
	if i < 0 {
		return domain.MessageRecord{}, false, nil
	}
	return recs[i], true, nil
}

// SubscribeMessages polls the conversation and delivers a snapshot whenever
// the set of messages changes.
func (c *Client) SubscribeMessages(
	ctx context.Context,
	conv domain.ConversationID,
	limit int,
) (<-chan []domain.MessageRecord, domain.Unsubscribe, error) {
	fetch := func(ctx context.Context) ([]domain.MessageRecord, error) {
		return c.ListMessages(ctx, conv, limit)
	}
	return subscribe(ctx, c, fetch, sameMessages)
}

func (c *Client) DeleteMessage(ctx context.Context, conv domain.ConversationID, id domain.MessageID, requester domain.UserID) error {
	header := http.Header{HeaderUserID: []string{string(requester)}}
	return c.do(ctx, http.MethodDelete, messagesPath(conv)+"/"+url.PathEscape(string(id)), header, nil, nil)
}

// do sends one JSON request. Network failures and 5xx responses are retried
// with exponential backoff, except for POST: the relay assigns ids on
// create, so a repeated POST after a lost response would store a duplicate.
func (c *Client) do(ctx context.Context, method, path string, header http.Header, in, out any) error {
	var body []byte
	if in != nil {
		var err error
		if body, err = json.Marshal(in); err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
	}

	operation := func() (struct{}, error) {
		req, err := http.NewRequestWithContext(ctx, method, c.base+path, bytes.NewReader(body))
		if err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		for k, v := range header {
			req.Header[k] = v
		}
		if in != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return struct{}{}, err
		}
		defer resp.Body.Close()

		if resp.StatusCode/100 != 2 {
			var eb errorBody
			_ = json.NewDecoder(resp.Body).Decode(&eb)
			rerr := errorFromBody(resp.StatusCode, eb)
			if rerr.transient() {
				return struct{}{}, rerr
			}
			return struct{}{}, backoff.Permanent(rerr)
		}
		if out == nil || resp.StatusCode == http.StatusNoContent {
			return struct{}{}, nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return struct{}{}, backoff.Permanent(fmt.Errorf("decode %s %s: %w", method, path, err))
		}
		return struct{}{}, nil
	}

	tries := c.tries
	if method == http.MethodPost {
		tries = 1
	}
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(tries),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.log.Debug().Err(err).Str("method", method).Str("path", path).Dur("retry_in", next).Msg("Relay request failed, retrying")
		}),
	)
	return err
}

func messagesPath(conv domain.ConversationID) string {
	return "/chats/" + url.PathEscape(string(conv)) + "/messages"
}

// found turns a not-found error into ok == false.
func found[T any](v T, err error, notFound error) (T, bool, error) {
	var zero T
	if cerrors.Is(err, notFound) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, err
	}
	return v, true, nil
}

// subscribe runs a poll loop and delivers fetched values that differ from
// the last delivered one. The first fetch happens before returning so its
// error reaches the caller. Delivery never blocks: a pending value is
// replaced by a newer one.
func subscribe[V any](
	ctx context.Context,
	c *Client,
	fetch func(context.Context) (V, error),
	same func(a, b V) bool,
) (<-chan V, domain.Unsubscribe, error) {
	last, err := fetch(ctx)
	if err != nil {
		return nil, nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	out := make(chan V, 1)
	out <- last

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer close(out)
		ticker := time.NewTicker(c.poll)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			v, err := fetch(ctx)
			if err != nil {
				if ctx.Err() == nil {
					c.log.Warn().Err(err).Msg("Relay poll failed")
				}
				continue
			}
			if same(last, v) {
				continue
			}
			last = v
			select {
			case out <- v:
			default:
				select {
				case <-out:
				default:
				}
				out <- v
			}
		}
	}()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}
	return out, unsubscribe, nil
}

func sameMessages(a, b []domain.MessageRecord) bool {
	return slices.EqualFunc(a, b, func(x, y domain.MessageRecord) bool {
		return x.ID == y.ID && x.Timestamp.Equal(y.Timestamp.Time)
	})
}

func sameUser(a, b domain.UserRecord) bool {
	if a.ID != b.ID || a.Email != b.Email || a.DisplayName != b.DisplayName {
		return false
	}
	if a.PublicKey == nil || b.PublicKey == nil {
		return a.PublicKey == b.PublicKey
	}
	return a.PublicKey.Equal(*b.PublicKey)
}

var (
	_ domain.DirectoryService  = (*Client)(nil)
	_ domain.ConversationStore = (*Client)(nil)
	_ domain.MessageStore      = (*Client)(nil)
)
