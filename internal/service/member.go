package service

import (
	"context"
	"strings"

	"reunion_archive/internal/model"
	"reunion_archive/internal/repository"
)

// MemberService manages a group's classmate directory.
type MemberService struct {
	memberRepo repository.MemberRepository
	userRepo   repository.UserRepository
}

func NewMemberService(memberRepo repository.MemberRepository, userRepo repository.UserRepository) *MemberService {
	return &MemberService{memberRepo: memberRepo, userRepo: userRepo}
}

// List returns the directory ordered by full name. query matches name,
// nickname, city or occupation, case-insensitively.
func (s *MemberService) List(ctx context.Context, groupID, query string) (*model.MemberListResponse, error) {
	members, err := s.memberRepo.List(ctx, groupID, strings.TrimSpace(query))
	if err != nil {
		return nil, err
	}
	if members == nil {
		members = []model.Member{}
	}
	return &model.MemberListResponse{Members: members, Total: len(members)}, nil
}

func (s *MemberService) Get(ctx context.Context, groupID, memberID string) (*model.Member, error) {
	return s.memberRepo.GetByID(ctx, groupID, memberID)
}

func (s *MemberService) Create(ctx context.Context, groupID string, in model.MemberInput) (*model.Member, error) {
	in, err := s.prepare(ctx, in)
	if err != nil {
		return nil, err
	}
	return s.memberRepo.Create(ctx, groupID, in)
}

func (s *MemberService) Update(ctx context.Context, groupID, memberID string, in model.MemberInput) (*model.Member, error) {
	in, err := s.prepare(ctx, in)
	if err != nil {
		return nil, err
	}
	return s.memberRepo.Update(ctx, groupID, memberID, in)
}

func (s *MemberService) Delete(ctx context.Context, groupID, memberID string) error {
	return s.memberRepo.Delete(ctx, groupID, memberID)
}

// prepare strips markup from free-text fields and checks the linked account.
func (s *MemberService) prepare(ctx context.Context, in model.MemberInput) (model.MemberInput, error) {
	in.FullName = sanitizeText(in.FullName)
	if in.FullName == "" {
		return in, model.ErrFullNameRequired
	}
	in.Nickname = sanitizeOptional(in.Nickname)
	in.ClassName = sanitizeOptional(in.ClassName)
	in.City = sanitizeOptional(in.City)
	in.Occupation = sanitizeOptional(in.Occupation)
	in.Bio = sanitizeOptional(in.Bio)

	if in.UserID != nil && *in.UserID != "" {
		if _, err := s.userRepo.GetByID(ctx, *in.UserID); err != nil {
			return in, err
		}
	} else {
		in.UserID = nil
	}
	return in, nil
}

func sanitizeOptional(v *string) *string {
	if v == nil {
		return nil
	}
	clean := sanitizeText(*v)
	if clean == "" {
		return nil
	}
	return &clean
}
