/*
Package authsdk provides a client and the shared wire types for the medmigrate
authentication API.

# Overview

The service exposes three credential operations over HTTP:

  - POST /register creates a principal from a username and password
  - POST /login exchanges credentials for a short-lived HS256 access token
  - GET /patients returns protected data for the bearer of a valid token

A typical session:

	client := authsdk.NewSDKClient("http://localhost:8080")

	if _, err := client.Register(ctx, "alice", "s3cret"); err != nil {
		return err
	}

	tok, err := client.Login(ctx, "alice", "s3cret")
	if err != nil {
		return err
	}

	data, err := client.Patients(ctx, tok.AccessToken)

# Error Handling

Non-2xx responses are returned as *APIError. The predefined errors can be
matched with errors.Is:

	_, err := client.Login(ctx, "alice", "wrong")
	if errors.Is(err, authsdk.ErrInvalidGrant) {
		// unknown user or wrong password, the service does not say which
	}

Access tokens are not refreshed. Once one expires, GET /patients returns
ErrInvalidToken and the caller must log in again.
*/
package authsdk
