package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/twilio/twilio-go"
	twilioclient "github.com/twilio/twilio-go/client"
	verify "github.com/twilio/twilio-go/rest/verify/v2"
)

// Verifier sends and checks one-time codes through an SMS provider.
type Verifier interface {
	Send(ctx context.Context, phone string) (providerRef string, err error)
	Check(ctx context.Context, phone, code string) (bool, error)
}

// fallbackCodes are provider errors meaning "cannot deliver to this number
// right now"; a local test code is issued instead.
//
//	21608 trial account, unverified recipient
//	60200 invalid To parameter
//	21211 invalid To number
//	21408 region not enabled
var fallbackCodes = map[int]bool{21608: true, 60200: true, 21211: true, 21408: true}

// FallbackCode returns the provider error code when err should trigger the
// local fallback.
func FallbackCode(err error) (int, bool) {
	var restErr *twilioclient.TwilioRestError
	if errors.As(err, &restErr) && fallbackCodes[restErr.Code] {
		return restErr.Code, true
	}
	return 0, false
}

type TwilioVerifier struct {
	client     *twilio.RestClient
	serviceSID string
}

func NewTwilioVerifier(client *twilio.RestClient, serviceSID string) *TwilioVerifier {
	return &TwilioVerifier{client: client, serviceSID: serviceSID}
}

func (tv *TwilioVerifier) Send(ctx context.Context, phone string) (string, error) {
	params := &verify.CreateVerificationParams{}
	params.SetTo(phone)
	params.SetChannel("sms")

	resp, err := tv.client.VerifyV2.CreateVerification(tv.serviceSID, params)
	if err != nil {
		return "", err
	}
	if resp.Sid == nil {
		return "", fmt.Errorf("twilio verify returned no sid")
	}
	return *resp.Sid, nil
}

func (tv *TwilioVerifier) Check(ctx context.Context, phone, code string) (bool, error) {
	params := &verify.CreateVerificationCheckParams{}
	params.SetTo(phone)
	params.SetCode(code)

	resp, err := tv.client.VerifyV2.CreateVerificationCheck(tv.serviceSID, params)
	if err != nil {
		var restErr *twilioclient.TwilioRestError
		// 20404: no pending verification for this number
		if errors.As(err, &restErr) && restErr.Status == 404 {
			return false, nil
		}
		return false, err
	}
	return resp.Status != nil && *resp.Status == "approved", nil
}
