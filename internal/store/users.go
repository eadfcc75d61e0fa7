package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sirupsen/logrus"

	"github.com/myflix/movies-api/internal/metrics"
	"github.com/myflix/movies-api/internal/models"
)

// DynamoUserStore implements UserStore against a DynamoDB table keyed by
// user_id, with a username-index GSI for the natural external identifier.
// Username uniqueness is enforced with a sentinel item per username
// (user_id = "username#<name>", no other attributes) written in the same
// transaction as the user record, so concurrent registrations or renames of
// the same username cannot both succeed. Sentinels carry no username
// attribute and never appear in the GSI.
type DynamoUserStore struct {
	client    *dynamodb.Client
	tableName string
	timeout   time.Duration
	logger    *logrus.Logger
}

func NewDynamoUserStore(client *dynamodb.Client, tableName string, timeout time.Duration, logger *logrus.Logger) *DynamoUserStore {
	return &DynamoUserStore{
		client:    client,
		tableName: tableName,
		timeout:   timeout,
		logger:    logger,
	}
}

func (s *DynamoUserStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	result, err := s.client.Query(ctx, gsiQuery(s.tableName, "username-index", "username", username))
	metrics.RecordStoreOperation(s.tableName, "query", statusLabel(err), time.Since(start))

	if err != nil {
		return nil, fmt.Errorf("query username %q: %w", username, err)
	}
	if len(result.Items) == 0 {
		return nil, ErrNotFound
	}

	var user models.User
	if err := attributevalue.UnmarshalMap(result.Items[0], &user); err != nil {
		return nil, fmt.Errorf("unmarshal user: %w", err)
	}

	return &user, nil
}

func (s *DynamoUserStore) FindByID(ctx context.Context, userID string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key:       userKey(userID),
	})
	metrics.RecordStoreOperation(s.tableName, "get", statusLabel(err), time.Since(start))

	if err != nil {
		return nil, fmt.Errorf("get user %q: %w", userID, err)
	}
	if result.Item == nil {
		return nil, ErrNotFound
	}

	var user models.User
	if err := attributevalue.UnmarshalMap(result.Item, &user); err != nil {
		return nil, fmt.Errorf("unmarshal user: %w", err)
	}

	return &user, nil
}

func (s *DynamoUserStore) Create(ctx context.Context, user *models.User) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	item, err := attributevalue.MarshalMap(user)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}

	start := time.Now()
	_, err = s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{
				TableName:           aws.String(s.tableName),
				Item:                item,
				ConditionExpression: aws.String("attribute_not_exists(user_id)"),
			}},
			{Put: &types.Put{
				TableName:           aws.String(s.tableName),
				Item:                usernameSentinelItem(user.Username),
				ConditionExpression: aws.String("attribute_not_exists(user_id)"),
			}},
		},
	})
	metrics.RecordStoreOperation(s.tableName, "transact_put", statusLabel(err), time.Since(start))

	if err != nil {
		if transactConditionFailed(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("put user: %w", err)
	}

	return nil
}

func (s *DynamoUserStore) Update(ctx context.Context, user *models.User) error {
	// Read the current record first: a rename has to move the username
	// sentinel in the same transaction as the profile write.
	current, err := s.FindByID(ctx, user.UserID)
	if err != nil {
		return err
	}

	item, err := attributevalue.MarshalMap(user)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}

	putUser := types.TransactWriteItem{Put: &types.Put{
		TableName:           aws.String(s.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_exists(user_id)"),
	}}

	rename := current.Username != user.Username
	var txItems []types.TransactWriteItem
	if rename {
		txItems = []types.TransactWriteItem{
			{Put: &types.Put{
				TableName:           aws.String(s.tableName),
				Item:                usernameSentinelItem(user.Username),
				ConditionExpression: aws.String("attribute_not_exists(user_id)"),
			}},
			{Delete: &types.Delete{
				TableName: aws.String(s.tableName),
				Key:       userKey(usernameSentinelPrefix + current.Username),
			}},
			putUser,
		}
	} else {
		txItems = []types.TransactWriteItem{putUser}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	_, err = s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: txItems})
	metrics.RecordStoreOperation(s.tableName, "transact_put", statusLabel(err), time.Since(start))

	if err != nil {
		if transactConditionFailed(err) {
			if rename {
				return ErrAlreadyExists
			}
			return ErrNotFound
		}
		return fmt.Errorf("update user: %w", err)
	}

	return nil
}

func (s *DynamoUserStore) Delete(ctx context.Context, userID string) error {
	// The username sentinel is keyed by name, so the record is read first.
	current, err := s.FindByID(ctx, userID)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	_, err = s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Delete: &types.Delete{
				TableName:           aws.String(s.tableName),
				Key:                 userKey(userID),
				ConditionExpression: aws.String("attribute_exists(user_id)"),
			}},
			{Delete: &types.Delete{
				TableName: aws.String(s.tableName),
				Key:       userKey(usernameSentinelPrefix + current.Username),
			}},
		},
	})
	metrics.RecordStoreOperation(s.tableName, "transact_delete", statusLabel(err), time.Since(start))

	if err != nil {
		if transactConditionFailed(err) {
			return ErrNotFound
		}
		return fmt.Errorf("delete user %q: %w", userID, err)
	}

	return nil
}

// AddFavorite adds movieID to the user's favorite set. The string set gives
// set semantics: adding an already-present movie is a no-op.
func (s *DynamoUserStore) AddFavorite(ctx context.Context, userID, movieID string) (*models.User, error) {
	return s.updateFavorites(ctx, userID, movieID, "ADD favorite_movies :movie SET updated_at = :now")
}

// RemoveFavorite removes movieID from the user's favorite set.
func (s *DynamoUserStore) RemoveFavorite(ctx context.Context, userID, movieID string) (*models.User, error) {
	return s.updateFavorites(ctx, userID, movieID, "DELETE favorite_movies :movie SET updated_at = :now")
}

func (s *DynamoUserStore) updateFavorites(ctx context.Context, userID, movieID, expression string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	now, err := attributevalue.Marshal(time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("marshal timestamp: %w", err)
	}

	start := time.Now()
	result, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.tableName),
		Key:                 userKey(userID),
		UpdateExpression:    aws.String(expression),
		ConditionExpression: aws.String("attribute_exists(user_id)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":movie": &types.AttributeValueMemberSS{Value: []string{movieID}},
			":now":   now,
		},
		ReturnValues: types.ReturnValueAllNew,
	})
	metrics.RecordStoreOperation(s.tableName, "update", statusLabel(err), time.Since(start))

	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update favorites for %q: %w", userID, err)
	}

	var user models.User
	if err := attributevalue.UnmarshalMap(result.Attributes, &user); err != nil {
		return nil, fmt.Errorf("unmarshal user: %w", err)
	}

	return &user, nil
}

func userKey(userID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"user_id": &types.AttributeValueMemberS{Value: userID},
	}
}

const usernameSentinelPrefix = "username#"

func usernameSentinelItem(username string) map[string]types.AttributeValue {
	return userKey(usernameSentinelPrefix + username)
}

// transactConditionFailed reports whether a transaction was cancelled by one
// of its condition checks, as opposed to a transport or capacity failure.
func transactConditionFailed(err error) bool {
	var txErr *types.TransactionCanceledException
	if !errors.As(err, &txErr) {
		return false
	}
	for _, reason := range txErr.CancellationReasons {
		if aws.ToString(reason.Code) == "ConditionalCheckFailed" {
			return true
		}
	}
	return false
}

func statusLabel(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
