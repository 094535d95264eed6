package user

import "stockkeeper/internal/domain/user"

type registerInput struct {
	Body user.BaseRequest
}

type registerOutput struct {
	Body user.RegisterResponse
}

type loginInput struct {
	Body user.BaseRequest
}

type loginOutput struct {
	Body user.LoginResponse
}

type logoutInput struct{}
