package probes

import (
	"context"
	"fmt"
	"net/textproto"
	"time"

	"signalguard/internal/egress"
	"signalguard/internal/models"
	"signalguard/internal/store"
)

// SMTPProbe performs an optional RCPT TO mailbox existence probe plus
// catch-all detection over a raw textproto dialogue. Disabled by
// default; treats this as opt-in since it touches a third party's MX.
type SMTPProbe struct {
	egress    *egress.Manager
	store     store.Store
	sender    string
	heloHost  string
	timeout   time.Duration
	cacheTTL  time.Duration
	semaphore chan struct{}
}

func NewSMTPProbe(s store.Store, eg *egress.Manager, sender, heloHost string, timeout, cacheTTL time.Duration) *SMTPProbe {
	if heloHost == "" {
		heloHost = "mta1.signalguard.local"
	}
	return &SMTPProbe{
		egress:    eg,
		store:     s,
		sender:    sender,
		heloHost:  heloHost,
		timeout:   timeout,
		cacheTTL:  cacheTTL,
		semaphore: make(chan struct{}, 15),
	}
}

// smtpResult is cached to avoid re-dialing the same mailbox within the TTL.
type smtpResult struct {
	Deliverable bool `json:"deliverable"`
	Valid       bool `json:"valid"`
	CatchAll    bool `json:"catch_all"`
}

// Probe connects to mxHost and issues RCPT TO for email, then for a
// random nonexistent mailbox on the same domain to detect catch-all.
func (p *SMTPProbe) Probe(ctx context.Context, mxHost, email, domain string) (deliverable, valid, catchAll bool, err error) {
	cacheKey := "smtp:" + email
	if cached, ok, cacheErr := p.store.Get(ctx, cacheKey); cacheErr == nil && ok {
		var res smtpResult
		if unmarshalSMTPResult(cached, &res) {
			return res.Deliverable, res.Valid, res.CatchAll, nil
		}
	}

	select {
	case p.semaphore <- struct{}{}:
	case <-ctx.Done():
		return false, false, false, ctx.Err()
	}
	defer func() { <-p.semaphore }()

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	rcptOK, rcptErr := p.rcpt(ctx, mxHost, email)
	if rcptErr != nil {
		// A reply code to RCPT TO (returned bare as *textproto.Error) is a
		// verdict on the mailbox; anything else is a transport failure.
		if _, isReply := rcptErr.(*textproto.Error); !isReply {
			return false, false, false, models.NewProbeFailure("smtp", rcptErr)
		}
	}

	probeAddr := "signalguard-catchall-probe-" + randomToken() + "@" + domain
	catchAllOK, _ := p.rcpt(ctx, mxHost, probeAddr)

	result := smtpResult{Deliverable: rcptOK, Valid: rcptOK, CatchAll: catchAllOK}
	_ = p.store.Set(ctx, cacheKey, marshalSMTPResult(result), p.cacheTTL)
	return result.Deliverable, result.Valid, result.CatchAll, nil
}

func (p *SMTPProbe) rcpt(ctx context.Context, mxHost, targetEmail string) (bool, error) {
	conn, err := p.egress.DialContext(ctx, "tcp", mxHost+":25")
	if err != nil {
		return false, fmt.Errorf("connection failed: %w", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(p.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	conn.SetDeadline(deadline)

	tp := textproto.NewConn(conn)
	defer tp.Close()

	if _, _, err := tp.ReadResponse(220); err != nil {
		return false, fmt.Errorf("banner rejected: %w", err)
	}
	if _, err := tp.Cmd("HELO %s", p.heloHost); err != nil {
		return false, err
	}
	if _, _, err := tp.ReadResponse(250); err != nil {
		return false, fmt.Errorf("HELO rejected: %w", err)
	}
	if _, err := tp.Cmd("MAIL FROM:<%s>", p.sender); err != nil {
		return false, err
	}
	if _, _, err := tp.ReadResponse(250); err != nil {
		return false, fmt.Errorf("MAIL FROM rejected: %w", err)
	}
	if _, err := tp.Cmd("RCPT TO:<%s>", targetEmail); err != nil {
		return false, err
	}

	code, msg, err := tp.ReadResponse(0)
	tp.Cmd("QUIT")
	if err != nil {
		return false, fmt.Errorf("read error: %w", err)
	}
	if code == 250 || code == 251 {
		return true, nil
	}
	return false, &textproto.Error{Code: code, Msg: msg}
}

func randomToken() string {
	return fmt.Sprintf("%x", time.Now().UnixNano())
}

func marshalSMTPResult(r smtpResult) []byte {
	flags := byte('0')
	if r.Deliverable {
		flags |= 1 << 0
	}
	if r.Valid {
		flags |= 1 << 1
	}
	if r.CatchAll {
		flags |= 1 << 2
	}
	return []byte{flags}
}

func unmarshalSMTPResult(b []byte, r *smtpResult) bool {
	if len(b) != 1 {
		return false
	}
	flags := b[0]
	r.Deliverable = flags&(1<<0) != 0
	r.Valid = flags&(1<<1) != 0
	r.CatchAll = flags&(1<<2) != 0
	return true
}
