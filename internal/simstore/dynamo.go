package simstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/vendra-ai/vendra/internal/persona"
	"github.com/vendra-ai/vendra/internal/psychology"
)

// Single-table layout:
//
//	PK SESSION#<id>  SK METADATA     session metadata (GSI1 lists newest first)
//	PK SESSION#<id>  SK TURN#<nnnnn> one transcript turn
//	PK SESSION#<id>  SK PSYCHSTATE   serialized state + version counter
//	PK SESSION#<id>  SK ANALYSIS     coaching report (write-once)

// Turn sort keys are offset so simulated pre-call turns (negative
// indexes) still sort before turn zero.
const turnIndexOffset = 100

type sessionItem struct {
	PK           string `dynamodbav:"PK"`
	SK           string `dynamodbav:"SK"`
	GSI1PK       string `dynamodbav:"GSI1PK"`
	GSI1SK       string `dynamodbav:"GSI1SK"`
	SessionID    string `dynamodbav:"sessionId"`
	Status       string `dynamodbav:"status"`
	ScenarioJSON string `dynamodbav:"scenarioJson"`
	PersonaJSON  string `dynamodbav:"personaJson,omitempty"`
	Outcome      string `dynamodbav:"outcome,omitempty"`
	CreatedAt    string `dynamodbav:"createdAt"`
	EndedAt      string `dynamodbav:"endedAt,omitempty"`
}

type turnItem struct {
	PK        string `dynamodbav:"PK"`
	SK        string `dynamodbav:"SK"`
	SessionID string `dynamodbav:"sessionId"`
	TurnIndex int    `dynamodbav:"turnIndex"`
	Role      string `dynamodbav:"role"`
	Content   string `dynamodbav:"content"`
	MetaJSON  string `dynamodbav:"metaJson,omitempty"`
	CreatedAt string `dynamodbav:"createdAt"`
}

type stateItem struct {
	PK        string `dynamodbav:"PK"`
	SK        string `dynamodbav:"SK"`
	StateJSON string `dynamodbav:"stateJson"`
	Version   int64  `dynamodbav:"version"`
	UpdatedAt string `dynamodbav:"updatedAt"`
}

type analysisItem struct {
	PK           string `dynamodbav:"PK"`
	SK           string `dynamodbav:"SK"`
	SessionID    string `dynamodbav:"sessionId"`
	AnalysisJSON string `dynamodbav:"analysisJson"`
	CreatedAt    string `dynamodbav:"createdAt"`
}

// DynamoStore persists sessions in a single DynamoDB table.
type DynamoStore struct {
	client    *dynamodb.Client
	tableName string
}

// NewDynamoStore creates a DynamoDB-backed store.
func NewDynamoStore(client *dynamodb.Client, tableName string) *DynamoStore {
	return &DynamoStore{client: client, tableName: tableName}
}

func sessionPK(id string) string { return "SESSION#" + id }

func turnSK(index int) string {
	return fmt.Sprintf("TURN#%05d", index+turnIndexOffset)
}

// CreateSession inserts session metadata, failing if the id exists.
func (s *DynamoStore) CreateSession(ctx context.Context, sess *Session) error {
	scenarioJSON, err := json.Marshal(sess.Scenario)
	if err != nil {
		return fmt.Errorf("marshal scenario: %w", err)
	}

	item := sessionItem{
		PK:           sessionPK(sess.ID),
		SK:           "METADATA",
		GSI1PK:       "SESSIONS",
		GSI1SK:       sess.CreatedAt + "#" + sess.ID,
		SessionID:    sess.ID,
		Status:       string(sess.Status),
		ScenarioJSON: string(scenarioJSON),
		CreatedAt:    sess.CreatedAt,
	}
	if sess.Persona != nil {
		personaJSON, err := json.Marshal(sess.Persona)
		if err != nil {
			return fmt.Errorf("marshal persona: %w", err)
		}
		item.PersonaJSON = string(personaJSON)
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("marshal session item: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           &s.tableName,
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrSessionExists
		}
		return fmt.Errorf("put session item: %w", err)
	}
	return nil
}

// GetSession retrieves session metadata by id. Missing sessions
// return nil without error.
func (s *DynamoStore) GetSession(ctx context.Context, id string) (*Session, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: sessionPK(id)},
			"SK": &types.AttributeValueMemberS{Value: "METADATA"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if result.Item == nil {
		return nil, nil
	}

	var item sessionItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return item.toSession()
}

func (item *sessionItem) toSession() (*Session, error) {
	sess := &Session{
		ID:        item.SessionID,
		Status:    SessionStatus(item.Status),
		Outcome:   item.Outcome,
		CreatedAt: item.CreatedAt,
		EndedAt:   item.EndedAt,
	}
	if err := json.Unmarshal([]byte(item.ScenarioJSON), &sess.Scenario); err != nil {
		return nil, fmt.Errorf("unmarshal scenario: %w", err)
	}
	if item.PersonaJSON != "" {
		sess.Persona = &persona.Profile{}
		if err := json.Unmarshal([]byte(item.PersonaJSON), sess.Persona); err != nil {
			return nil, fmt.Errorf("unmarshal persona: %w", err)
		}
	}
	return sess, nil
}

// SetPersona attaches the generated persona and activates the session.
func (s *DynamoStore) SetPersona(ctx context.Context, id string, p *persona.Profile) error {
	personaJSON, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal persona: %w", err)
	}

	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: sessionPK(id)},
			"SK": &types.AttributeValueMemberS{Value: "METADATA"},
		},
		UpdateExpression:    aws.String("SET personaJson = :p, #status = :status"),
		ConditionExpression: aws.String("attribute_exists(PK)"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":p":      &types.AttributeValueMemberS{Value: string(personaJSON)},
			":status": &types.AttributeValueMemberS{Value: string(StatusActive)},
		},
	})
	if err != nil {
		return fmt.Errorf("set persona: %w", err)
	}
	return nil
}

// EndSession marks the session completed with an outcome.
func (s *DynamoStore) EndSession(ctx context.Context, id, outcome string) error {
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: sessionPK(id)},
			"SK": &types.AttributeValueMemberS{Value: "METADATA"},
		},
		UpdateExpression:    aws.String("SET #status = :status, outcome = :outcome, endedAt = :ended"),
		ConditionExpression: aws.String("attribute_exists(PK)"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status":  &types.AttributeValueMemberS{Value: string(StatusCompleted)},
			":outcome": &types.AttributeValueMemberS{Value: outcome},
			":ended":   &types.AttributeValueMemberS{Value: Now()},
		},
	})
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	return nil
}

// ListSessions returns sessions newest first via GSI1.
func (s *DynamoStore) ListSessions(ctx context.Context, limit int, cursor string) ([]Session, string, error) {
	if limit <= 0 {
		limit = 20
	}

	input := &dynamodb.QueryInput{
		TableName:              &s.tableName,
		IndexName:              aws.String("GSI1"),
		KeyConditionExpression: aws.String("GSI1PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: "SESSIONS"},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(int32(limit)),
	}

	if cursor != "" {
		// Cursor is the full GSI1SK value ({timestamp}#{id}).
		parts := strings.SplitN(cursor, "#", 2)
		if len(parts) != 2 {
			return nil, "", fmt.Errorf("invalid cursor format")
		}
		input.ExclusiveStartKey = map[string]types.AttributeValue{
			"PK":     &types.AttributeValueMemberS{Value: sessionPK(parts[1])},
			"SK":     &types.AttributeValueMemberS{Value: "METADATA"},
			"GSI1PK": &types.AttributeValueMemberS{Value: "SESSIONS"},
			"GSI1SK": &types.AttributeValueMemberS{Value: cursor},
		}
	}

	result, err := s.client.Query(ctx, input)
	if err != nil {
		return nil, "", fmt.Errorf("list sessions: %w", err)
	}

	var items []sessionItem
	if err := attributevalue.UnmarshalListOfMaps(result.Items, &items); err != nil {
		return nil, "", fmt.Errorf("unmarshal session list: %w", err)
	}

	sessions := make([]Session, 0, len(items))
	for i := range items {
		sess, err := items[i].toSession()
		if err != nil {
			return nil, "", err
		}
		sessions = append(sessions, *sess)
	}

	var nextCursor string
	if result.LastEvaluatedKey != nil {
		if gsi1sk, ok := result.LastEvaluatedKey["GSI1SK"].(*types.AttributeValueMemberS); ok {
			nextCursor = gsi1sk.Value
		}
	}

	return sessions, nextCursor, nil
}

// AppendTurns writes transcript turns. Turns for one exchange go in a
// single call so a failed turn never leaves half an exchange behind.
func (s *DynamoStore) AppendTurns(ctx context.Context, sessionID string, turns []Turn) error {
	if len(turns) == 0 {
		return nil
	}

	writes := make([]types.TransactWriteItem, 0, len(turns))
	for _, turn := range turns {
		metaJSON, err := json.Marshal(turn.Meta)
		if err != nil {
			return fmt.Errorf("marshal turn meta: %w", err)
		}
		item := turnItem{
			PK:        sessionPK(sessionID),
			SK:        turnSK(turn.TurnIndex),
			SessionID: sessionID,
			TurnIndex: turn.TurnIndex,
			Role:      string(turn.Role),
			Content:   turn.Content,
			MetaJSON:  string(metaJSON),
			CreatedAt: turn.CreatedAt,
		}
		av, err := attributevalue.MarshalMap(item)
		if err != nil {
			return fmt.Errorf("marshal turn item: %w", err)
		}
		writes = append(writes, types.TransactWriteItem{
			Put: &types.Put{
				TableName: &s.tableName,
				Item:      av,
			},
		})
	}

	_, err := s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: writes,
	})
	if err != nil {
		return fmt.Errorf("append turns: %w", err)
	}
	return nil
}

// ListTurns returns the transcript ordered by turn index.
func (s *DynamoStore) ListTurns(ctx context.Context, sessionID string) ([]Turn, error) {
	result, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              &s.tableName,
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: sessionPK(sessionID)},
			":prefix": &types.AttributeValueMemberS{Value: "TURN#"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}

	var items []turnItem
	if err := attributevalue.UnmarshalListOfMaps(result.Items, &items); err != nil {
		return nil, fmt.Errorf("unmarshal turns: %w", err)
	}

	turns := make([]Turn, 0, len(items))
	for _, item := range items {
		turn := Turn{
			SessionID: item.SessionID,
			TurnIndex: item.TurnIndex,
			Role:      TurnRole(item.Role),
			Content:   item.Content,
			CreatedAt: item.CreatedAt,
		}
		if item.MetaJSON != "" {
			if err := json.Unmarshal([]byte(item.MetaJSON), &turn.Meta); err != nil {
				return nil, fmt.Errorf("unmarshal turn meta: %w", err)
			}
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

// LoadState fetches the psychological state and its version. A session
// with no saved state yet yields (nil, 0, nil).
func (s *DynamoStore) LoadState(ctx context.Context, sessionID string) (*psychology.State, int64, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: sessionPK(sessionID)},
			"SK": &types.AttributeValueMemberS{Value: "PSYCHSTATE"},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("load state: %w", err)
	}
	if result.Item == nil {
		return nil, 0, nil
	}

	var item stateItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, 0, fmt.Errorf("unmarshal state item: %w", err)
	}

	state := &psychology.State{}
	if err := json.Unmarshal([]byte(item.StateJSON), state); err != nil {
		return nil, 0, fmt.Errorf("unmarshal state: %w", err)
	}
	return state, item.Version, nil
}

// SaveState writes the state, guarded by the version read at load
// time. A conflicting concurrent write surfaces ErrVersionConflict.
func (s *DynamoStore) SaveState(ctx context.Context, sessionID string, state *psychology.State, expectedVersion int64) error {
	stateJSON, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	// "version" is a DynamoDB reserved word, hence the #version alias.
	condition := "attribute_not_exists(PK)"
	values := map[string]types.AttributeValue{
		":state":   &types.AttributeValueMemberS{Value: string(stateJSON)},
		":version": &types.AttributeValueMemberN{Value: strconv.FormatInt(expectedVersion+1, 10)},
		":updated": &types.AttributeValueMemberS{Value: Now()},
	}
	if expectedVersion > 0 {
		condition = "#version = :expected"
		values[":expected"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(expectedVersion, 10)}
	}

	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: sessionPK(sessionID)},
			"SK": &types.AttributeValueMemberS{Value: "PSYCHSTATE"},
		},
		UpdateExpression:    aws.String("SET stateJson = :state, #version = :version, updatedAt = :updated"),
		ConditionExpression: aws.String(condition),
		ExpressionAttributeNames: map[string]string{
			"#version": "version",
		},
		ExpressionAttributeValues: values,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrVersionConflict
		}
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

// SaveAnalysis stores a coaching report, one per session.
func (s *DynamoStore) SaveAnalysis(ctx context.Context, a *Analysis) error {
	analysisJSON, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}

	item := analysisItem{
		PK:           sessionPK(a.SessionID),
		SK:           "ANALYSIS",
		SessionID:    a.SessionID,
		AnalysisJSON: string(analysisJSON),
		CreatedAt:    a.CreatedAt,
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("marshal analysis item: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           &s.tableName,
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(SK)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrAnalysisExists
		}
		return fmt.Errorf("put analysis: %w", err)
	}
	return nil
}

// GetAnalysis fetches the coaching report, nil when absent.
func (s *DynamoStore) GetAnalysis(ctx context.Context, sessionID string) (*Analysis, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: sessionPK(sessionID)},
			"SK": &types.AttributeValueMemberS{Value: "ANALYSIS"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get analysis: %w", err)
	}
	if result.Item == nil {
		return nil, nil
	}

	var item analysisItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("unmarshal analysis item: %w", err)
	}

	a := &Analysis{}
	if err := json.Unmarshal([]byte(item.AnalysisJSON), a); err != nil {
		return nil, fmt.Errorf("unmarshal analysis: %w", err)
	}
	return a, nil
}
