package imaptest

import (
	"crypto/tls"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-sasl"
	"github.com/nalgeon/be"
)

const sampleMbox = `From alice@example.com Mon Sep 25 09:30:00 2023
From: alice@example.com
Subject: first
Date: Mon, 25 Sep 2023 09:30:00 +0000

one

From bob@example.com Tue Sep 26 09:30:00 2023
From: bob@example.com
Subject: second
Date: Tue, 26 Sep 2023 09:30:00 +0000

two
`

func TestLoadMboxAndLogin(t *testing.T) {
	srv := Start(t, Options{})
	be.Err(t, srv.LoadMbox(strings.NewReader(sampleMbox)), nil)
	be.Equal(t, srv.Len(), 2)

	c, err := client.Dial(srv.Addr())
	be.Err(t, err, nil)
	defer c.Logout()

	be.True(t, c.Login(DefaultUser, "wrong") != nil)
	be.Err(t, c.Login(DefaultUser, DefaultPass), nil)
	status, err := c.Select("INBOX", true)
	be.Err(t, err, nil)
	be.Equal(t, status.Messages, uint32(2))
}

func TestDeliver(t *testing.T) {
	srv := Start(t, Options{})
	raw := "From: carol@example.com\r\nTo: test@example.com\r\nSubject: delivered\r\n\r\nhello\r\n"
	be.Err(t, srv.Deliver("carol@example.com", []string{"test@example.com"}, []byte(raw)), nil)
	be.Equal(t, srv.Len(), 1)
}

func TestImplicitTLS(t *testing.T) {
	srv := Start(t, Options{Security: SecurityTLS})
	c, err := client.DialTLS(srv.Addr(), &tls.Config{InsecureSkipVerify: true})
	be.Err(t, err, nil)
	defer c.Logout()
	be.Err(t, c.Login(DefaultUser, DefaultPass), nil)
}

func TestStartTLSRequiredBeforeLogin(t *testing.T) {
	srv := Start(t, Options{Security: SecurityStartTLS})
	c, err := client.Dial(srv.Addr())
	be.Err(t, err, nil)
	c.Timeout = 5 * time.Second
	defer c.Logout()

	ok, err := c.SupportStartTLS()
	be.Err(t, err, nil)
	be.True(t, ok)
	be.True(t, c.Login(DefaultUser, DefaultPass) != nil)

	be.Err(t, c.StartTLS(&tls.Config{InsecureSkipVerify: true}), nil)
	be.Err(t, c.Login(DefaultUser, DefaultPass), nil)
}

func TestOAuthBearer(t *testing.T) {
	srv := Start(t, Options{OAuthToken: "tok", OAuthMechanism: sasl.OAuthBearer})
	c, err := client.Dial(srv.Addr())
	be.Err(t, err, nil)
	defer c.Logout()

	ok, err := c.SupportAuth(sasl.OAuthBearer)
	be.Err(t, err, nil)
	be.True(t, ok)
	be.Err(t, c.Authenticate(sasl.NewOAuthBearerClient(&sasl.OAuthBearerOptions{
		Username: DefaultUser,
		Token:    "tok",
	})), nil)
}

func TestLoginDisabledAllowsPlain(t *testing.T) {
	srv := Start(t, Options{Security: SecurityTLS, LoginDisabled: true})
	c, err := client.DialTLS(srv.Addr(), &tls.Config{InsecureSkipVerify: true})
	be.Err(t, err, nil)
	c.Timeout = 5 * time.Second
	defer c.Logout()

	disabled, err := c.Support("LOGINDISABLED")
	be.Err(t, err, nil)
	be.True(t, disabled)
	plain, err := c.SupportAuth(sasl.Plain)
	be.Err(t, err, nil)
	be.True(t, plain)

	be.True(t, c.Login(DefaultUser, DefaultPass) != nil)
	be.Err(t, c.Authenticate(sasl.NewPlainClient("", DefaultUser, DefaultPass)), nil)
}

func TestRejectFetch(t *testing.T) {
	srv := Start(t, Options{RejectFetch: true})
	be.Err(t, srv.LoadMbox(strings.NewReader(sampleMbox)), nil)
	c, err := client.Dial(srv.Addr())
	be.Err(t, err, nil)
	c.Timeout = 5 * time.Second
	defer c.Logout()
	be.Err(t, c.Login(DefaultUser, DefaultPass), nil)
	_, err = c.Select("INBOX", true)
	be.Err(t, err, nil)

	set := new(imap.SeqSet)
	set.AddNum(1)
	messages := make(chan *imap.Message, 1)
	err = c.Fetch(set, []imap.FetchItem{imap.FetchEnvelope}, messages)
	be.True(t, err != nil)
	be.True(t, strings.Contains(err.Error(), ErrFetchRejected.Error()))
}

func TestOpenConns(t *testing.T) {
	srv := Start(t, Options{})
	c, err := client.Dial(srv.Addr())
	be.Err(t, err, nil)
	be.Equal(t, srv.OpenConns(), 1)

	be.Err(t, c.Logout(), nil)
	srv.WaitReleased(t, 2*time.Second)
	be.Equal(t, srv.OpenConns(), 0)
}
