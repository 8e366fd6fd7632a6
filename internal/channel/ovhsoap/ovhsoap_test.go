package ovhsoap

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaharia-lab/angelia/internal/channel"
)

const faultResponse = `<?xml version="1.0" encoding="UTF-8"?>
<SOAP-ENV:Envelope xmlns:SOAP-ENV="http://schemas.xmlsoap.org/soap/envelope/">
  <SOAP-ENV:Body>
    <SOAP-ENV:Fault>
      <faultcode>SOAP-ENV:Server</faultcode>
      <faultstring>Invalid login</faultstring>
    </SOAP-ENV:Fault>
  </SOAP-ENV:Body>
</SOAP-ENV:Envelope>`

const okResponse = `<?xml version="1.0" encoding="UTF-8"?>
<SOAP-ENV:Envelope xmlns:SOAP-ENV="http://schemas.xmlsoap.org/soap/envelope/">
  <SOAP-ENV:Body>
    <telephonySmsUserSendResponse xmlns="http://soapi.ovh.com/manager">
      <return>1234</return>
    </telephonySmsUserSendResponse>
  </SOAP-ENV:Body>
</SOAP-ENV:Envelope>`

func validConfig(endpoint string) channel.Config {
	return channel.Config{
		"endpoint":   endpoint,
		"login":      "nic-ovh",
		"password":   "secret",
		"smsaccount": "sms-ab12345-1",
		"numberfrom": "+33600000000",
	}
}

func TestParseConfig_Defaults(t *testing.T) {
	c, err := ParseConfig(validConfig(""))
	require.NoError(t, err)
	assert.Equal(t, DefaultEndpoint, c.Endpoint)
	assert.Equal(t, 10, c.Validity)
	assert.Equal(t, 1, c.Class)
	assert.Equal(t, 0, c.Deferred)
	assert.Equal(t, 3, c.Priority)
	assert.Equal(t, 1, c.Coding)
	assert.False(t, c.NoStop)
}

func TestParseConfig_Errors(t *testing.T) {
	for _, key := range []string{"login", "password", "smsaccount", "numberfrom"} {
		cfg := validConfig("")
		delete(cfg, key)
		_, err := New(cfg)
		assert.ErrorIs(t, err, channel.ErrMissingRequiredKey, key)
	}

	cfg := validConfig("")
	cfg["smsclass"] = 7
	_, err := ParseConfig(cfg)
	assert.ErrorIs(t, err, channel.ErrInvalidValue)

	cfg = validConfig("")
	cfg["smscoding"] = "utf8"
	_, err = ParseConfig(cfg)
	assert.ErrorIs(t, err, channel.ErrInvalidValue)
}

func TestSend_PostsEnvelope(t *testing.T) {
	var gotBody string
	var gotAction string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		gotAction = r.Header.Get("SOAPAction")
		w.Header().Set("Content-Type", "text/xml")
		_, _ = io.WriteString(w, okResponse)
	}))
	defer srv.Close()

	cfg := validConfig(srv.URL)
	cfg["nostop"] = "true"
	c, err := ParseConfig(cfg)
	require.NoError(t, err)
	ch := newChannel(c, srv.Client())

	err = ch.Send(context.Background(), channel.Notification{
		Recipient: "15551234567",
		Subject:   "ignored",
		Body:      "disk <90% & rising",
	})
	require.NoError(t, err)

	assert.Equal(t, soapNamespace+"#telephonySmsUserSend", gotAction)
	assert.Contains(t, gotBody, `<numberTo xsi:type="xsd:string">+15551234567</numberTo>`)
	assert.Contains(t, gotBody, `<message xsi:type="xsd:string">disk &lt;90% &amp; rising</message>`)
	assert.Contains(t, gotBody, `<smsAccount xsi:type="xsd:string">sms-ab12345-1</smsAccount>`)
	assert.Contains(t, gotBody, `<smsPriority xsi:type="xsd:int">3</smsPriority>`)
	assert.Contains(t, gotBody, `<noStop xsi:type="xsd:boolean">true</noStop>`)
	assert.Contains(t, gotBody, `<soap:Envelope`)
}

func TestSend_FaultIsTransportFailureAndThrottles(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, faultResponse)
	}))
	defer srv.Close()

	c, err := ParseConfig(validConfig(srv.URL))
	require.NoError(t, err)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ch := newChannel(c, srv.Client(), channel.WithClock(func() time.Time { return now }))

	n := channel.Notification{Recipient: "+15551234567", Body: "x"}
	err = ch.Send(context.Background(), n)
	require.ErrorIs(t, err, channel.ErrTransportFailure)
	assert.Contains(t, err.Error(), "Invalid login")

	err = ch.Send(context.Background(), n)
	require.ErrorIs(t, err, channel.ErrThrottled)
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))

	now = now.Add(channel.DefaultCooldown + time.Second)
	err = ch.Send(context.Background(), n)
	require.ErrorIs(t, err, channel.ErrTransportFailure)
	assert.EqualValues(t, 2, atomic.LoadInt32(&hits))
}

func TestSend_NonSOAPErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	c, err := ParseConfig(validConfig(srv.URL))
	require.NoError(t, err)
	ch := newChannel(c, srv.Client())

	err = ch.Send(context.Background(), channel.Notification{Recipient: "1", Body: "x"})
	require.ErrorIs(t, err, channel.ErrTransportFailure)
	assert.Contains(t, err.Error(), "502")
}
