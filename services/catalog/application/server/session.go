package server

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/google/uuid"

	"github.com/ghuser/prodvault/pkg/logger"
	"github.com/ghuser/prodvault/pkg/protocol"
	"github.com/ghuser/prodvault/pkg/validator"
	"github.com/ghuser/prodvault/services/catalog/domain"
	"github.com/ghuser/prodvault/services/catalog/domain/models"
)

// session is the per-connection state machine. It starts unauthenticated,
// becomes authenticated through exactly one successful auth request and stays
// bound to that user until the connection ends. Requests on one connection
// are processed strictly in order.
type session struct {
	id    uuid.UUID
	conn  net.Conn
	codec *protocol.Codec
	log   logger.Logger
	srv   *Server

	user    *models.User
	cleanup func()
}

func newSession(conn net.Conn, srv *Server) *session {
	id := uuid.New()
	return &session{
		id:    id,
		conn:  conn,
		codec: protocol.NewCodec(conn),
		log:   srv.log.With("session_id", id.String(), "remote", conn.RemoteAddr().String()),
		srv:   srv,
	}
}

// serve runs the read loop until the client disconnects or an unrecoverable
// IO error occurs. Malformed requests get a failure response and the
// connection stays open.
func (s *session) serve(ctx context.Context) {
	defer s.close()
	s.log.InfoContext(ctx, "session opened")

	for {
		req, err := s.codec.ReadRequest()
		if err != nil {
			var decodeErr *protocol.DecodeError
			if errors.As(err, &decodeErr) {
				if werr := s.codec.WriteResponse(protocol.Fail("malformed request: " + decodeErr.Err.Error())); werr != nil {
					s.log.WarnContext(ctx, "write failed", "error", werr)
					return
				}
				continue
			}
			// EOF or socket error ends the session.
			s.log.InfoContext(ctx, "session closed", "reason", err.Error())
			return
		}

		resp := s.handle(ctx, req)
		if resp == nil {
			continue // snapshot already written raw
		}
		if err := s.codec.WriteResponse(resp); err != nil {
			s.log.WarnContext(ctx, "write failed", "error", err)
			return
		}
	}
}

// handle routes one request. A nil return means the response was already
// written (snapshot).
func (s *session) handle(ctx context.Context, req *protocol.Request) *protocol.Response {
	if err := req.CheckEnvelope(); err != nil {
		return protocol.Fail(fmt.Sprintf("%v: %v", domain.ErrProtocol, err))
	}
	if err := validator.Validate(req); err != nil {
		return protocol.Fail(fmt.Sprintf("%v: %s", domain.ErrProtocol, validator.FormatValidationErrors(err)))
	}

	switch req.Type {
	case protocol.TypeAuth:
		return s.handleAuth(ctx, req.Auth)
	case protocol.TypeSnapshot:
		if s.user == nil {
			return protocol.Fail(domain.ErrNotAuthenticated.Error())
		}
		// Bulk read: the raw sorted product array, not wrapped in a Response.
		if err := s.codec.WriteRaw(s.srv.store.Snapshot()); err != nil {
			s.log.WarnContext(ctx, "snapshot write failed", "error", err)
		}
		return nil
	case protocol.TypeCommand:
		return s.handleCommand(ctx, req.Command)
	default:
		return protocol.Fail(domain.ErrProtocol.Error())
	}
}

func (s *session) handleAuth(ctx context.Context, auth *protocol.Auth) *protocol.Response {
	if s.user != nil {
		return protocol.Fail("already authenticated as " + s.user.Username)
	}

	kind := "login"
	if auth.Register {
		kind = "register"
	}

	user, resp := s.authenticate(ctx, auth)
	if s.srv.metrics != nil {
		status := "ok"
		if user == nil {
			status = "failed"
		}
		s.srv.metrics.AuthTotal.WithLabelValues(kind, status).Inc()
	}
	if user == nil {
		return resp
	}

	if !s.srv.sessions.claim(user.Username, s.id) {
		return protocol.Fail(domain.ErrAlreadyAuthorized.Error())
	}
	s.user = user
	s.cleanup = func() { s.srv.sessions.release(user.Username, s.id) }
	s.log.InfoContext(ctx, "session authenticated", "user", user.Username, "kind", kind)
	return resp
}

// authenticate resolves the auth payload to a user. Returns (nil, failure
// response) when credentials do not check out.
func (s *session) authenticate(ctx context.Context, auth *protocol.Auth) (*models.User, *protocol.Response) {
	hash := models.HashPassword(auth.Password)

	if auth.Register {
		user, err := s.srv.users.Create(ctx, auth.Username, hash)
		if errors.Is(err, domain.ErrUsernameTaken) {
			return nil, protocol.Fail(domain.ErrUsernameTaken.Error())
		}
		if err != nil {
			s.log.ErrorContext(ctx, "registration failed", "error", err)
			return nil, protocol.Fail("registration failed, try again later")
		}
		return user, protocol.OK(
			fmt.Sprintf("registered as %s", user.Username),
			map[string]int64{"user_id": user.ID},
		)
	}

	user, err := s.srv.users.GetByUsername(ctx, auth.Username)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, protocol.Fail(domain.ErrInvalidCredentials.Error())
	}
	if err != nil {
		s.log.ErrorContext(ctx, "login lookup failed", "error", err)
		return nil, protocol.Fail("login failed, try again later")
	}
	if user.PasswordHash != hash {
		return nil, protocol.Fail(domain.ErrInvalidCredentials.Error())
	}
	return user, protocol.OK(
		fmt.Sprintf("logged in as %s", user.Username),
		map[string]int64{"user_id": user.ID},
	)
}

func (s *session) handleCommand(ctx context.Context, cmd *protocol.Command) *protocol.Response {
	if s.user == nil {
		return protocol.Fail(domain.ErrNotAuthenticated.Error())
	}
	// Every command re-proves identity: the envelope hash must match the
	// stored one, otherwise the command is not executed at all.
	if cmd.Username != s.user.Username || cmd.PasswordHash != s.user.PasswordHash {
		return protocol.Fail(domain.ErrStaleCredentials.Error())
	}

	// Run on the bounded pool so a slow gateway call cannot hog a runtime
	// thread per session; this session still waits, keeping responses in order.
	var (
		out  string
		err  error
		done = make(chan struct{})
	)
	user := s.user
	task := func() {
		defer close(done)
		out, err = s.srv.registry.Execute(ctx, cmd.Name, cmd.Args, user)
	}
	if serr := s.srv.pool.Submit(ctx, task); serr != nil {
		return protocol.Fail("server is shutting down")
	}
	<-done

	if err != nil {
		return protocol.Fail(err.Error())
	}
	return protocol.OK(out, nil)
}

// close releases the session's resources. Idempotent.
func (s *session) close() {
	if s.cleanup != nil {
		s.cleanup()
		s.cleanup = nil
	}
	_ = s.conn.Close()
	if s.srv.metrics != nil {
		s.srv.metrics.ActiveConnections.Dec()
	}
}
