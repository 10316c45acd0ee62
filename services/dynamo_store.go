package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"mingle_server/models"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoGameStore implements GameStore on top of the DynamoService wrapper.
// WaitingPool is keyed PK="MODE#<mode>" / SK="PLAYER#<participantId>",
// GameSessions is keyed by sessionId. Both tables carry an expiresAt TTL
// attribute as the storage-layer backstop for abandoned records.
type DynamoGameStore struct {
	Dynamo *DynamoService
}

func poolKey(mode, participantID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: models.PoolPK(mode)},
		"SK": &types.AttributeValueMemberS{Value: models.PoolSK(participantID)},
	}
}

func sessionKey(sessionID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"sessionId": &types.AttributeValueMemberS{Value: sessionID},
	}
}

func (s *DynamoGameStore) GetWaitingEntry(ctx context.Context, mode, participantID string) (*models.WaitingEntry, error) {
	item, err := s.Dynamo.GetItem(ctx, models.WaitingPoolTable, poolKey(mode, participantID))
	if err != nil {
		return nil, err
	}

	var entry models.WaitingEntry
	if err := attributevalue.UnmarshalMap(item, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal waiting entry: %w", err)
	}
	return &entry, nil
}

func (s *DynamoGameStore) PutWaitingEntry(ctx context.Context, entry models.WaitingEntry) error {
	return s.Dynamo.PutItem(ctx, models.WaitingPoolTable, entry, "attribute_not_exists(PK) AND attribute_not_exists(SK)")
}

func (s *DynamoGameStore) ListWaitingEntries(ctx context.Context, mode string) ([]models.WaitingEntry, error) {
	keyCondition := "PK = :pk"
	expressionValues := map[string]types.AttributeValue{
		":pk": &types.AttributeValueMemberS{Value: models.PoolPK(mode)},
	}

	items, err := s.Dynamo.QueryItems(ctx, models.WaitingPoolTable, keyCondition, expressionValues, nil, 0)
	if err != nil {
		return nil, err
	}

	var entries []models.WaitingEntry
	if err := attributevalue.UnmarshalListOfMaps(items, &entries); err != nil {
		return nil, fmt.Errorf("failed to unmarshal waiting entries: %w", err)
	}
	return entries, nil
}

// CreateMatch claims all member entries and creates the session in one
// TransactWriteItems call. Each claim carries a matchStatus=waiting condition,
// so two racing matchers can never both win the same candidate.
func (s *DynamoGameStore) CreateMatch(ctx context.Context, entries []models.WaitingEntry, session models.GameSession) error {
	var items []types.TransactWriteItem

	for _, entry := range entries {
		items = append(items, types.TransactWriteItem{
			Update: &types.Update{
				TableName:           awsString(models.WaitingPoolTable),
				Key:                 poolKey(entry.Mode, entry.ParticipantID),
				UpdateExpression:    awsString("SET matchStatus = :matched, sessionId = :sid, isPrimary = :primary"),
				ConditionExpression: awsString("matchStatus = :waiting"),
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":matched": &types.AttributeValueMemberS{Value: models.MatchStatusMatched},
					":waiting": &types.AttributeValueMemberS{Value: models.MatchStatusWaiting},
					":sid":     &types.AttributeValueMemberS{Value: session.SessionID},
					":primary": &types.AttributeValueMemberBOOL{Value: entry.IsPrimary},
				},
			},
		})
	}

	sessionItem, err := attributevalue.MarshalMap(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	items = append(items, types.TransactWriteItem{
		Put: &types.Put{
			TableName:           awsString(models.GameSessionsTable),
			Item:                sessionItem,
			ConditionExpression: awsString("attribute_not_exists(sessionId)"),
		},
	})

	return s.Dynamo.TransactWriteItems(ctx, items)
}

func (s *DynamoGameStore) ClaimWaitingEntry(ctx context.Context, mode, participantID, sessionID string, isPrimary bool) error {
	_, err := s.Dynamo.UpdateItem(ctx, models.WaitingPoolTable,
		"SET matchStatus = :matched, sessionId = :sid, isPrimary = :primary",
		"matchStatus = :waiting",
		poolKey(mode, participantID),
		map[string]types.AttributeValue{
			":matched": &types.AttributeValueMemberS{Value: models.MatchStatusMatched},
			":waiting": &types.AttributeValueMemberS{Value: models.MatchStatusWaiting},
			":sid":     &types.AttributeValueMemberS{Value: sessionID},
			":primary": &types.AttributeValueMemberBOOL{Value: isPrimary},
		}, nil)
	return err
}

func (s *DynamoGameStore) DeleteWaitingEntryIfWaiting(ctx context.Context, mode, participantID string) error {
	return s.Dynamo.DeleteItem(ctx, models.WaitingPoolTable, poolKey(mode, participantID),
		"matchStatus = :waiting",
		map[string]types.AttributeValue{
			":waiting": &types.AttributeValueMemberS{Value: models.MatchStatusWaiting},
		})
}

func (s *DynamoGameStore) DeleteWaitingEntry(ctx context.Context, mode, participantID string) error {
	return s.Dynamo.DeleteItem(ctx, models.WaitingPoolTable, poolKey(mode, participantID), "", nil)
}

func (s *DynamoGameStore) GetSession(ctx context.Context, sessionID string) (*models.GameSession, error) {
	item, err := s.Dynamo.GetItem(ctx, models.GameSessionsTable, sessionKey(sessionID))
	if err != nil {
		if errors.Is(err, ErrItemNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	var session models.GameSession
	if err := attributevalue.UnmarshalMap(item, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &session, nil
}

// UpdateSession is the session engine's only write path. The version condition
// turns every state transition into a compare-and-swap.
func (s *DynamoGameStore) UpdateSession(ctx context.Context, session models.GameSession) error {
	item, err := attributevalue.MarshalMap(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	input := &types.Put{
		TableName:           awsString(models.GameSessionsTable),
		Item:                item,
		ConditionExpression: awsString("version = :prev"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":prev": &types.AttributeValueMemberN{Value: strconv.FormatInt(session.Version-1, 10)},
		},
	}

	return s.Dynamo.TransactWriteItems(ctx, []types.TransactWriteItem{{Put: input}})
}

func (s *DynamoGameStore) DeleteSession(ctx context.Context, sessionID string) error {
	return s.Dynamo.DeleteItem(ctx, models.GameSessionsTable, sessionKey(sessionID), "", nil)
}

func (s *DynamoGameStore) ListSessionsByStatus(ctx context.Context, mode, status string) ([]models.GameSession, error) {
	filterExpression := "#mode = :mode AND #status = :status"
	expressionValues := map[string]types.AttributeValue{
		":mode":   &types.AttributeValueMemberS{Value: mode},
		":status": &types.AttributeValueMemberS{Value: status},
	}
	expressionNames := map[string]string{
		"#mode":   "mode",
		"#status": "status",
	}

	items, err := s.Dynamo.ScanItems(ctx, models.GameSessionsTable, filterExpression, expressionValues, expressionNames)
	if err != nil {
		return nil, err
	}

	var sessions []models.GameSession
	if err := attributevalue.UnmarshalListOfMaps(items, &sessions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal sessions: %w", err)
	}
	return sessions, nil
}

func (s *DynamoGameStore) ScanWaitingPool(ctx context.Context) ([]models.WaitingEntry, error) {
	items, err := s.Dynamo.ScanItems(ctx, models.WaitingPoolTable, "", nil, nil)
	if err != nil {
		return nil, err
	}

	var entries []models.WaitingEntry
	if err := attributevalue.UnmarshalListOfMaps(items, &entries); err != nil {
		return nil, fmt.Errorf("failed to unmarshal waiting entries: %w", err)
	}
	return entries, nil
}

func (s *DynamoGameStore) ScanSessions(ctx context.Context) ([]models.GameSession, error) {
	items, err := s.Dynamo.ScanItems(ctx, models.GameSessionsTable, "", nil, nil)
	if err != nil {
		return nil, err
	}

	var sessions []models.GameSession
	if err := attributevalue.UnmarshalListOfMaps(items, &sessions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal sessions: %w", err)
	}
	return sessions, nil
}
