package mapper

import "referral-ledger-backend/internal/features/user/models"

func ToUserResponse(user *models.User) *models.UserResponse {
	return &models.UserResponse{
		TelegramID: user.TelegramID,
		Username:   user.Username,
		RefCode:    user.RefCode,
		Position:   user.Position,
		HasSponsor: user.InvitedBy != nil,
		ProUntil:   user.ProUntil,
		CreatedAt:  user.CreatedAt,
	}
}

func ToRegistrationResponse(result *models.RegistrationResult) *models.RegistrationResponse {
	return &models.RegistrationResponse{
		UserResponse: *ToUserResponse(result.User),
		Created:      result.Created,
	}
}
