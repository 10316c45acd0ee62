package services

import (
	"context"
	"log"

	"mingle_server/models"
	"mingle_server/utils"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ParticipantInfo is the display subset rendered next to a participant.
type ParticipantInfo struct {
	ParticipantID string `json:"participantId"`
	Name          string `json:"name"`
	Photo         string `json:"photo,omitempty"`
}

// ProfileResolver maps a participantId to display data for rendering only.
// Identity equality on participantId is the only authorization signal the
// game engine ever uses; nothing here feeds back into matching or turns.
type ProfileResolver interface {
	Resolve(ctx context.Context, participantID string) ParticipantInfo
}

// UserProfileService resolves display names from the main app's UserProfiles
// table. Profile storage is owned elsewhere; we only read it.
type UserProfileService struct {
	Dynamo *DynamoService
}

func (ups *UserProfileService) Resolve(ctx context.Context, participantID string) ParticipantInfo {
	key := map[string]types.AttributeValue{
		"userId": &types.AttributeValueMemberS{Value: participantID},
	}

	item, err := ups.Dynamo.GetItem(ctx, models.UserProfilesTable, key)
	if err != nil {
		// Rendering fallback only; a missing profile never blocks a match.
		log.Printf("⚠️ Profile lookup failed for %s: %v", participantID, err)
		return ParticipantInfo{ParticipantID: participantID, Name: participantID}
	}

	info := ParticipantInfo{
		ParticipantID: participantID,
		Name:          utils.ExtractString(item, "name"),
		Photo:         utils.ExtractFirstPhoto(item, "photos"),
	}
	if info.Name == "" {
		info.Name = participantID
	}
	return info
}

// StaticProfileResolver echoes the participantId back as the display name.
// Used with the memory backend and in tests.
type StaticProfileResolver struct{}

func (StaticProfileResolver) Resolve(_ context.Context, participantID string) ParticipantInfo {
	return ParticipantInfo{ParticipantID: participantID, Name: participantID}
}
