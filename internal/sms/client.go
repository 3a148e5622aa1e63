package sms

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/twilio/twilio-go"
	twilioclient "github.com/twilio/twilio-go/client"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

var ErrMissingCredentials = errors.New("account SID, auth token and sender number are all required")

// Credentials are supplied by the operator for each session.
type Credentials struct {
	AccountSID string `form:"account_sid"`
	AuthToken  string `form:"auth_token"`
	FromNumber string `form:"from_number"`
}

func (c Credentials) Validate() error {
	if strings.TrimSpace(c.AccountSID) == "" ||
		strings.TrimSpace(c.AuthToken) == "" ||
		strings.TrimSpace(c.FromNumber) == "" {
		return ErrMissingCredentials
	}
	return nil
}

// MessageCreator is the slice of the Twilio REST API used here.
type MessageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

type Client struct {
	api            MessageCreator
	from           string
	statusCallback string
}

// NewClient builds a Twilio-backed sender. statusCallback may be empty.
func NewClient(creds Credentials, statusCallback string) (*Client, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	rest := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: strings.TrimSpace(creds.AccountSID),
		Password: strings.TrimSpace(creds.AuthToken),
	})

	return NewClientWithCreator(rest.Api, creds.FromNumber, statusCallback), nil
}

func NewClientWithCreator(api MessageCreator, from, statusCallback string) *Client {
	return &Client{
		api:            api,
		from:           strings.TrimSpace(from),
		statusCallback: statusCallback,
	}
}

// Send delivers body to the given number and returns the message SID.
func (c *Client) Send(ctx context.Context, to, body string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(strings.TrimSpace(to))
	params.SetFrom(c.from)
	params.SetBody(body)
	if c.statusCallback != "" {
		params.SetStatusCallback(c.statusCallback)
	}

	resp, err := c.api.CreateMessage(params)
	if err != nil {
		return "", describe(err)
	}

	if resp == nil || resp.Sid == nil {
		return "", nil
	}
	return *resp.Sid, nil
}

// describe shortens Twilio API errors to their human-readable message.
func describe(err error) error {
	var restErr *twilioclient.TwilioRestError
	if errors.As(err, &restErr) {
		return fmt.Errorf("%s (code %d)", restErr.Message, restErr.Code)
	}
	return err
}
