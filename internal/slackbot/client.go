package slackbot

import (
	"context"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"
)

// API is the subset of the Slack Web API the bot uses. It exists so tests
// can inject a mock.
type API interface {
	AuthTestContext(ctx context.Context) (*slack.AuthTestResponse, error)

	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
	PostEphemeralContext(ctx context.Context, channelID, userID string, options ...slack.MsgOption) (string, error)
	DeleteMessageContext(ctx context.Context, channelID, messageTimestamp string) (string, string, error)

	OpenConversationContext(ctx context.Context, params *slack.OpenConversationParameters) (*slack.Channel, bool, bool, error)
	GetConversationHistoryContext(ctx context.Context, params *slack.GetConversationHistoryParameters) (*slack.GetConversationHistoryResponse, error)
	CloseConversationContext(ctx context.Context, channelID string) (bool, bool, error)

	GetUserInfoContext(ctx context.Context, userID string) (*slack.User, error)
}

// SocketClient is the Socket Mode surface the bot uses.
type SocketClient interface {
	Run() error
	Ack(req socketmode.Request, payload ...interface{})
	EventChannel() <-chan socketmode.Event
}

var _ API = (*slack.Client)(nil)

// socketModeClient adapts *socketmode.Client to SocketClient.
type socketModeClient struct {
	*socketmode.Client
}

// NewSocketClient wraps a socketmode.Client.
func NewSocketClient(client *socketmode.Client) SocketClient {
	return socketModeClient{Client: client}
}

func (s socketModeClient) EventChannel() <-chan socketmode.Event {
	return s.Client.Events
}

// MockAPI is a test double for API.
type MockAPI struct {
	AuthTestContextFunc               func(ctx context.Context) (*slack.AuthTestResponse, error)
	PostMessageContextFunc            func(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
	PostEphemeralContextFunc          func(ctx context.Context, channelID, userID string, options ...slack.MsgOption) (string, error)
	DeleteMessageContextFunc          func(ctx context.Context, channelID, messageTimestamp string) (string, string, error)
	OpenConversationContextFunc       func(ctx context.Context, params *slack.OpenConversationParameters) (*slack.Channel, bool, bool, error)
	GetConversationHistoryContextFunc func(ctx context.Context, params *slack.GetConversationHistoryParameters) (*slack.GetConversationHistoryResponse, error)
	CloseConversationContextFunc      func(ctx context.Context, channelID string) (bool, bool, error)
	GetUserInfoContextFunc            func(ctx context.Context, userID string) (*slack.User, error)
}

func (m *MockAPI) AuthTestContext(ctx context.Context) (*slack.AuthTestResponse, error) {
	if m.AuthTestContextFunc != nil {
		return m.AuthTestContextFunc(ctx)
	}
	return &slack.AuthTestResponse{UserID: "UBOT", Team: "TestTeam"}, nil
}

func (m *MockAPI) PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error) {
	if m.PostMessageContextFunc != nil {
		return m.PostMessageContextFunc(ctx, channelID, options...)
	}
	return channelID, "1234567890.123456", nil
}

func (m *MockAPI) PostEphemeralContext(ctx context.Context, channelID, userID string, options ...slack.MsgOption) (string, error) {
	if m.PostEphemeralContextFunc != nil {
		return m.PostEphemeralContextFunc(ctx, channelID, userID, options...)
	}
	return "1234567890.123456", nil
}

func (m *MockAPI) DeleteMessageContext(ctx context.Context, channelID, messageTimestamp string) (string, string, error) {
	if m.DeleteMessageContextFunc != nil {
		return m.DeleteMessageContextFunc(ctx, channelID, messageTimestamp)
	}
	return channelID, messageTimestamp, nil
}

func (m *MockAPI) OpenConversationContext(ctx context.Context, params *slack.OpenConversationParameters) (*slack.Channel, bool, bool, error) {
	if m.OpenConversationContextFunc != nil {
		return m.OpenConversationContextFunc(ctx, params)
	}
	channel := &slack.Channel{}
	channel.ID = "CNEW"
	return channel, false, false, nil
}

func (m *MockAPI) GetConversationHistoryContext(ctx context.Context, params *slack.GetConversationHistoryParameters) (*slack.GetConversationHistoryResponse, error) {
	if m.GetConversationHistoryContextFunc != nil {
		return m.GetConversationHistoryContextFunc(ctx, params)
	}
	return &slack.GetConversationHistoryResponse{}, nil
}

func (m *MockAPI) CloseConversationContext(ctx context.Context, channelID string) (bool, bool, error) {
	if m.CloseConversationContextFunc != nil {
		return m.CloseConversationContextFunc(ctx, channelID)
	}
	return false, false, nil
}

func (m *MockAPI) GetUserInfoContext(ctx context.Context, userID string) (*slack.User, error) {
	if m.GetUserInfoContextFunc != nil {
		return m.GetUserInfoContextFunc(ctx, userID)
	}
	return &slack.User{ID: userID, Name: "testuser"}, nil
}

// MockSocketClient is a test double for SocketClient.
type MockSocketClient struct {
	RunFunc    func() error
	AckFunc    func(req socketmode.Request, payload ...interface{})
	EventsChan chan socketmode.Event
}

func NewMockSocketClient() *MockSocketClient {
	return &MockSocketClient{EventsChan: make(chan socketmode.Event, 100)}
}

func (m *MockSocketClient) Run() error {
	if m.RunFunc != nil {
		return m.RunFunc()
	}
	select {}
}

func (m *MockSocketClient) Ack(req socketmode.Request, payload ...interface{}) {
	if m.AckFunc != nil {
		m.AckFunc(req, payload...)
	}
}

func (m *MockSocketClient) EventChannel() <-chan socketmode.Event {
	return m.EventsChan
}

// Close closes the events channel for cleanup.
func (m *MockSocketClient) Close() {
	close(m.EventsChan)
}
