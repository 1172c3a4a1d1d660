package handler

import "github.com/xapps/user-management-service/internal/core/domain"

func toUserResponse(user domain.User) userResponse {
	return userResponse{
		ID:       user.ID,
		Surname:  user.Surname,
		Lastname: user.Lastname,
		Username: user.Username,
	}
}

func toUserResponses(users []domain.User) []userResponse {
	responses := make([]userResponse, 0, len(users))
	for _, u := range users {
		responses = append(responses, toUserResponse(u))
	}
	return responses
}

func toRoleNames(names []string) []domain.RoleName {
	if len(names) == 0 {
		return nil
	}
	roles := make([]domain.RoleName, 0, len(names))
	for _, n := range names {
		roles = append(roles, domain.RoleName(n))
	}
	return roles
}
