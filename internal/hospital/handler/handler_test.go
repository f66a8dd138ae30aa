package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"scanbo/internal/hospital/handler/mocks"
	"scanbo/internal/hospital/models"
	jwttoken "scanbo/internal/jwt_token"
	id "scanbo/pkg/domain"
	dErrors "scanbo/pkg/domain-errors"
	"scanbo/pkg/requestcontext"
	"scanbo/pkg/testutil"
)

// =============================================================================
// Hospital Handler Test Suite
// =============================================================================
// Justification for unit tests: the handler owns status-code mapping for the
// two registration failures, bearer auth wiring, and path parsing. The
// service is mocked so every error branch is reachable.

type HandlerSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	service *mocks.MockService
	jwt     *jwttoken.JWTService
	router  chi.Router
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.service = mocks.NewMockService(s.ctrl)
	s.jwt = jwttoken.NewJWTService("test-signing-key", "scanbo", "scanbo")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.router = chi.NewRouter()
	New(s.service, s.jwt, logger).Register(s.router)
}

func (s *HandlerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *HandlerSuite) token(accountID id.AccountID) string {
	token, err := s.jwt.GenerateAccessToken(accountID, time.Hour)
	s.Require().NoError(err)
	return token
}

func (s *HandlerSuite) hospital(accountID id.AccountID, name, location string) *models.Hospital {
	h, err := models.NewHospital(accountID, []byte(name), []byte(location), 64, time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC))
	s.Require().NoError(err)
	return h
}

func (s *HandlerSuite) TestRegister() {
	body := RegisterRequest{Name: "City Gen", Location: "Capital"}

	s.Run("created returns the stored record", func() {
		s.service.EXPECT().
			Register(gomock.Any(), id.AccountID("alice"), []byte("City Gen"), []byte("Capital")).
			Return(s.hospital("alice", "City Gen", "Capital"), nil)

		rr := testutil.DoRequest(s.router, testutil.NewBearerRequest(s.T(), http.MethodPost, "/hospitals", s.token("alice"), body))

		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
		resp := testutil.UnmarshalResponse[HospitalResponse](s.T(), rr)
		s.Equal("alice", resp.AccountID)
		s.Equal("City Gen", resp.Name)
		s.Equal("Capital", resp.Location)
	})

	s.Run("already registered maps to 409", func() {
		s.service.EXPECT().Register(gomock.Any(), id.AccountID("alice"), gomock.Any(), gomock.Any()).
			Return(nil, dErrors.Wrap(models.ErrAlreadyRegistered, dErrors.CodeConflict, "account already has a registered hospital"))

		rr := testutil.DoRequest(s.router, testutil.NewBearerRequest(s.T(), http.MethodPost, "/hospitals", s.token("alice"), body))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, ErrCodeAlreadyRegistered)
	})

	s.Run("too long maps to 400", func() {
		s.service.EXPECT().Register(gomock.Any(), id.AccountID("bob"), gomock.Any(), gomock.Any()).
			Return(nil, dErrors.Wrap(models.ErrTooLong, dErrors.CodeValidation, "too long"))

		rr := testutil.DoRequest(s.router, testutil.NewBearerRequest(s.T(), http.MethodPost, "/hospitals", s.token("bob"), body))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, ErrCodeTooLong)
	})

	s.Run("internal failure hides the cause", func() {
		s.service.EXPECT().Register(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, dErrors.Wrap(errors.New("broker down"), dErrors.CodeInternal, "failed to deliver registration notification"))

		rr := testutil.DoRequest(s.router, testutil.NewBearerRequest(s.T(), http.MethodPost, "/hospitals", s.token("carol"), body))
		testutil.AssertStatus(s.T(), rr, http.StatusInternalServerError)
		errResp := testutil.UnmarshalErrorResponse(s.T(), rr)
		s.Equal(string(dErrors.CodeInternal), errResp["error"])
		s.Empty(errResp["error_description"])
	})

	s.Run("missing token is rejected before the service", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/hospitals", body))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")
	})

	s.Run("unknown fields are rejected", func() {
		req := testutil.NewBearerRequest(s.T(), http.MethodPost, "/hospitals", s.token("dave"),
			map[string]string{"name": "x", "location": "y", "owner": "mallory"})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeBadRequest))
	})
}

func (s *HandlerSuite) TestRegisterBinaryFields() {
	raw := []byte{0x00, 0xff, 0xfe, 0x80}

	s.Run("base64 fields carry bytes that are not UTF-8", func() {
		s.service.EXPECT().
			Register(gomock.Any(), id.AccountID("frank"), raw, []byte("Port")).
			Return(s.hospital("frank", string(raw), "Port"), nil)

		body := RegisterRequest{NameBase64: raw, Location: "Port"}
		rr := testutil.DoRequest(s.router, testutil.NewBearerRequest(s.T(), http.MethodPost, "/hospitals", s.token("frank"), body))

		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
		resp := testutil.UnmarshalResponse[HospitalResponse](s.T(), rr)
		s.Equal(raw, resp.NameBase64)
		s.Equal([]byte("Port"), resp.LocationBase64)
	})

	s.Run("empty base64 is an empty field", func() {
		s.service.EXPECT().
			Register(gomock.Any(), id.AccountID("gina"), []byte("Clinic"), []byte{}).
			Return(s.hospital("gina", "Clinic", ""), nil)

		body := map[string]string{"name": "Clinic", "location_base64": ""}
		rr := testutil.DoRequest(s.router, testutil.NewBearerRequest(s.T(), http.MethodPost, "/hospitals", s.token("gina"), body))
		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
	})

	s.Run("both forms of one field are rejected", func() {
		body := RegisterRequest{Name: "Clinic", NameBase64: raw, Location: "Port"}
		rr := testutil.DoRequest(s.router, testutil.NewBearerRequest(s.T(), http.MethodPost, "/hospitals", s.token("frank"), body))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeBadRequest))
	})
}

func (s *HandlerSuite) TestGet() {
	s.Run("found", func() {
		s.service.EXPECT().Get(gomock.Any(), id.AccountID("alice")).
			Return(s.hospital("alice", "City Gen", "Capital"), nil)

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/hospitals/alice"))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		testutil.AssertJSONContains(s.T(), rr, "name", "City Gen")
	})

	s.Run("not found", func() {
		s.service.EXPECT().Get(gomock.Any(), id.AccountID("nobody")).
			Return(nil, dErrors.New(dErrors.CodeNotFound, "hospital not found"))

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/hospitals/nobody"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, string(dErrors.CodeNotFound))
	})
}

// HandleRegister called without the router: the context values the
// middlewares would set reach the service unchanged.
func (s *HandlerSuite) TestHandleRegisterDirect() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := New(s.service, s.jwt, logger)
	pinned := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	s.Run("request context reaches the service", func() {
		s.service.EXPECT().
			Register(gomock.Any(), id.AccountID("erin"), []byte("North"), []byte("Hill")).
			DoAndReturn(func(ctx context.Context, accountID id.AccountID, name, location []byte) (*models.Hospital, error) {
				s.Equal("req-42", requestcontext.RequestID(ctx))
				s.Equal("203.0.113.9", requestcontext.ClientIP(ctx))
				s.Equal(pinned, requestcontext.Now(ctx))
				return s.hospital(accountID, string(name), string(location)), nil
			})

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/hospitals", RegisterRequest{Name: "North", Location: "Hill"})
		req = testutil.WithAccount(req, "erin")
		req = testutil.WithRequestMetadata(req, "req-42", "203.0.113.9", "curl/8.5.0")
		req = testutil.WithTime(req, pinned)

		rr := testutil.DoRequest(http.HandlerFunc(h.HandleRegister), req)
		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
	})

	s.Run("missing account is unauthorized", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/hospitals", RegisterRequest{Name: "North", Location: "Hill"})

		rr := testutil.DoRequest(http.HandlerFunc(h.HandleRegister), req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, string(dErrors.CodeUnauthorized))
	})
}
