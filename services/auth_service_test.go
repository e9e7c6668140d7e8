package services

import (
	"context"
	"testing"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/require"

	"github.com/campushq/event-registration/models"
)

var testJWTSecret = []byte("test-secret")

func signupInput() SignupInput {
	return SignupInput{
		Name:     "Priya Sharma",
		Email:    "priya@uni.edu",
		Password: "correct horse",
	}
}

func TestSignup_IssuesVerifiableToken(t *testing.T) {
	svc := NewAuthService(newFakeUserRepository(), testJWTSecret)

	user, token, err := svc.Signup(context.Background(), signupInput())
	require.NoError(t, err)
	require.NotZero(t, user.ID)
	require.Equal(t, models.RoleStudent, user.Role, "new accounts start as students")
	require.Empty(t, user.PasswordHash, "hashes never leave the service")

	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(token *jwt.Token) (interface{}, error) {
		return testJWTSecret, nil
	})
	require.NoError(t, err)
	require.True(t, parsed.Valid)
	require.EqualValues(t, user.ID, claims["user_id"])
	require.Equal(t, string(models.RoleStudent), claims["role"])
}

func TestSignup_NormalizesEmailAndEnforcesUniqueness(t *testing.T) {
	svc := NewAuthService(newFakeUserRepository(), testJWTSecret)

	input := signupInput()
	input.Email = "  Priya@Uni.EDU "
	user, _, err := svc.Signup(context.Background(), input)
	require.NoError(t, err)
	require.Equal(t, "priya@uni.edu", user.Email)

	_, _, err = svc.Signup(context.Background(), signupInput())
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestSignup_Validation(t *testing.T) {
	svc := NewAuthService(newFakeUserRepository(), testJWTSecret)

	short := signupInput()
	short.Password = "short"
	_, _, err := svc.Signup(context.Background(), short)
	require.ErrorIs(t, err, ErrValidationFailed)

	blank := signupInput()
	blank.Name = "  "
	_, _, err = svc.Signup(context.Background(), blank)
	require.ErrorIs(t, err, ErrValidationFailed)
}

func TestSignin(t *testing.T) {
	svc := NewAuthService(newFakeUserRepository(), testJWTSecret)
	_, _, err := svc.Signup(context.Background(), signupInput())
	require.NoError(t, err)

	user, token, err := svc.Signin(context.Background(), models.Credentials{
		Email:    "priya@uni.edu",
		Password: "correct horse",
	})
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.Empty(t, user.PasswordHash)

	_, _, err = svc.Signin(context.Background(), models.Credentials{
		Email:    "priya@uni.edu",
		Password: "wrong password",
	})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Signin(context.Background(), models.Credentials{
		Email:    "nobody@uni.edu",
		Password: "correct horse",
	})
	require.ErrorIs(t, err, ErrInvalidCredentials, "unknown emails look identical to bad passwords")
}
