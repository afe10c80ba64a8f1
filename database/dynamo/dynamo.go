// Package dynamo stores folders, blocks and nodes in a single DynamoDB table.
//
// Every entity lives under PK "<KIND>#<id>", SK "METADATA". Nodes are also
// projected into two indexes: FolderIndex (GSI1) keyed by folder and sorted by
// block, position and priority, and BlockIndex (GSI2) keyed by block. Integer
// ids come from atomic counters under PK "COUNTER".
package dynamo

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"time"

	"github.com/aquilax/cmsnode/database"
	"github.com/aquilax/cmsnode/node"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	DefaultTable = "engine"
	folderIndex  = "FolderIndex"
	blockIndex   = "BlockIndex"
	metadataSK   = "METADATA"
	counterPK    = "COUNTER"

	typeFolder = "folder"
	typeBlock  = "block"
	typeNode   = "node"
)

// Client is the subset of the DynamoDB API the store uses.
type Client interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

type Dynamo struct {
	client Client
	table  string
}

func New() *Dynamo {
	return &Dynamo{table: DefaultTable}
}

// NewWithClient uses an already configured client.
func NewWithClient(client Client, table string) *Dynamo {
	return &Dynamo{client: client, table: table}
}

// Settings are parsed from a DSN such as
// "table=engine&region=eu-west-1&endpoint=http://localhost:8000".
type Settings struct {
	Table    string
	Region   string
	Endpoint string
}

func ParseDSN(dsn string) (Settings, error) {
	s := Settings{Table: DefaultTable}
	values, err := url.ParseQuery(dsn)
	if err != nil {
		return s, fmt.Errorf("dynamo dsn: %w", err)
	}
	if t := values.Get("table"); t != "" {
		s.Table = t
	}
	s.Region = values.Get("region")
	s.Endpoint = values.Get("endpoint")
	return s, nil
}

func (m *Dynamo) Open(driver, dsn string) error {
	s, err := ParseDSN(dsn)
	if err != nil {
		return err
	}
	ctx := context.Background()
	var opts []func(*config.LoadOptions) error
	if s.Region != "" {
		opts = append(opts, config.WithRegion(s.Region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return fmt.Errorf("load aws config: %w", err)
	}
	m.table = s.Table
	m.client = dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if s.Endpoint != "" {
			o.BaseEndpoint = aws.String(s.Endpoint)
		}
	})
	return nil
}

func (m *Dynamo) CreateSchema(ctx context.Context) error {
	attr := func(name string) types.AttributeDefinition {
		return types.AttributeDefinition{AttributeName: aws.String(name), AttributeType: types.ScalarAttributeTypeS}
	}
	key := func(hash, rng string) []types.KeySchemaElement {
		return []types.KeySchemaElement{
			{AttributeName: aws.String(hash), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String(rng), KeyType: types.KeyTypeRange},
		}
	}
	_, err := m.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName:   aws.String(m.table),
		BillingMode: types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{
			attr("PK"), attr("SK"), attr("GSI1PK"), attr("GSI1SK"), attr("GSI2PK"), attr("GSI2SK"),
		},
		KeySchema: key("PK", "SK"),
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
			{
				IndexName:  aws.String(folderIndex),
				KeySchema:  key("GSI1PK", "GSI1SK"),
				Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
			},
			{
				IndexName:  aws.String(blockIndex),
				KeySchema:  key("GSI2PK", "GSI2SK"),
				Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
			},
		},
	})
	var inUse *types.ResourceInUseException
	if errors.As(err, &inUse) {
		return nil
	}
	return err
}

func metadataKey(pk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pk},
		"SK": &types.AttributeValueMemberS{Value: metadataSK},
	}
}

// nextID increments the counter for kind and returns the new value.
func (m *Dynamo) nextID(ctx context.Context, kind string) (int64, error) {
	expr, err := expression.NewBuilder().
		WithUpdate(expression.Add(expression.Name("Seq"), expression.Value(1))).
		Build()
	if err != nil {
		return 0, err
	}
	out, err := m.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(m.table),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: counterPK},
			"SK": &types.AttributeValueMemberS{Value: kind},
		},
		UpdateExpression:          expr.Update(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              types.ReturnValueUpdatedNew,
	})
	if err != nil {
		return 0, fmt.Errorf("next %s id: %w", kind, err)
	}
	var seq struct {
		Seq int64 `dynamodbav:"Seq"`
	}
	if err := attributevalue.UnmarshalMap(out.Attributes, &seq); err != nil {
		return 0, err
	}
	return seq.Seq, nil
}

func (m *Dynamo) getItem(ctx context.Context, pk string, out interface{}) error {
	result, err := m.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(m.table),
		Key:       metadataKey(pk),
	})
	if err != nil {
		return err
	}
	if result.Item == nil {
		return database.ErrNotFound
	}
	return attributevalue.UnmarshalMap(result.Item, out)
}

// putItem writes item; when mustExist is set the item has to be there
// already, otherwise it must not.
func (m *Dynamo) putItem(ctx context.Context, item interface{}, mustExist bool) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return err
	}
	cond := expression.AttributeNotExists(expression.Name("PK"))
	if mustExist {
		cond = expression.AttributeExists(expression.Name("PK"))
	}
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return err
	}
	_, err = m.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(m.table),
		Item:                      av,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	var ccf *types.ConditionalCheckFailedException
	if mustExist && errors.As(err, &ccf) {
		return database.ErrNotFound
	}
	return err
}

func (m *Dynamo) AddFolder(ctx context.Context, f *node.FolderRecord) (int64, error) {
	id, err := m.nextID(ctx, typeFolder)
	if err != nil {
		return 0, err
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now()
	}
	f.ID = id
	if err := m.putItem(ctx, newFolderItem(f), false); err != nil {
		return 0, err
	}
	return id, nil
}

func (m *Dynamo) GetFolder(ctx context.Context, folderID int64) (*node.FolderRecord, error) {
	var item folderItem
	if err := m.getItem(ctx, folderPK(folderID), &item); err != nil {
		return nil, err
	}
	return item.record(), nil
}

func (m *Dynamo) GetFolders(ctx context.Context) ([]node.FolderRecord, error) {
	expr, err := expression.NewBuilder().
		WithFilter(expression.Name("Type").Equal(expression.Value(typeFolder))).
		Build()
	if err != nil {
		return nil, err
	}
	p := dynamodb.NewScanPaginator(m.client, &dynamodb.ScanInput{
		TableName:                 aws.String(m.table),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	var fl []node.FolderRecord
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		var items []folderItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, err
		}
		for _, item := range items {
			fl = append(fl, *item.record())
		}
	}
	sort.Slice(fl, func(i, j int) bool { return fl[i].ID < fl[j].ID })
	return fl, nil
}

func (m *Dynamo) AddBlock(ctx context.Context, b *node.BlockRecord) (int64, error) {
	id, err := m.nextID(ctx, typeBlock)
	if err != nil {
		return 0, err
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now()
	}
	b.ID = id
	if err := m.putItem(ctx, newBlockItem(b), false); err != nil {
		return 0, err
	}
	return id, nil
}

func (m *Dynamo) GetBlock(ctx context.Context, blockID int64) (*node.BlockRecord, error) {
	var item blockItem
	if err := m.getItem(ctx, blockPK(blockID), &item); err != nil {
		return nil, err
	}
	return item.record(), nil
}

func (m *Dynamo) GetNode(ctx context.Context, nodeID int64) (*node.Node, error) {
	var item nodeItem
	if err := m.getItem(ctx, nodePK(nodeID), &item); err != nil {
		return nil, err
	}
	nl, err := m.nodes(ctx, []nodeItem{item})
	if err != nil {
		return nil, err
	}
	return nl[0], nil
}

// nodes resolves block names the way the SQL backends join them.
func (m *Dynamo) nodes(ctx context.Context, items []nodeItem) (node.NodeList, error) {
	names := make(map[int64]string)
	rows := make(database.NodeRows, 0, len(items))
	for _, item := range items {
		name, found := names[item.BlockID]
		if !found {
			b, err := m.GetBlock(ctx, item.BlockID)
			switch {
			case err == nil:
				name = b.Name
			case !errors.Is(err, database.ErrNotFound):
				return nil, err
			}
			names[item.BlockID] = name
		}
		rows = append(rows, item.row(name))
	}
	return rows.Nodes()
}

func (m *Dynamo) query(ctx context.Context, index string, key expression.KeyConditionBuilder, filter *expression.ConditionBuilder) ([]nodeItem, error) {
	b := expression.NewBuilder().WithKeyCondition(key)
	if filter != nil {
		b = b.WithFilter(*filter)
	}
	expr, err := b.Build()
	if err != nil {
		return nil, err
	}
	p := dynamodb.NewQueryPaginator(m.client, &dynamodb.QueryInput{
		TableName:                 aws.String(m.table),
		IndexName:                 aws.String(index),
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	var items []nodeItem
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		var pageItems []nodeItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &pageItems); err != nil {
			return nil, err
		}
		items = append(items, pageItems...)
	}
	return items, nil
}

func (m *Dynamo) GetFolderNodes(ctx context.Context, folderID int64, count, offset int) (node.NodeList, error) {
	items, err := m.query(ctx, folderIndex, expression.Key("GSI1PK").Equal(expression.Value(folderPK(folderID))), nil)
	if err != nil {
		return nil, err
	}
	start, end := database.Window(len(items), count, offset)
	return m.nodes(ctx, items[start:end])
}

func (m *Dynamo) GetTotalFolderNodes(ctx context.Context, folderID int64) (int, error) {
	expr, err := expression.NewBuilder().
		WithKeyCondition(expression.Key("GSI1PK").Equal(expression.Value(folderPK(folderID)))).
		Build()
	if err != nil {
		return 0, err
	}
	p := dynamodb.NewQueryPaginator(m.client, &dynamodb.QueryInput{
		TableName:                 aws.String(m.table),
		IndexName:                 aws.String(folderIndex),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		Select:                    types.SelectCount,
	})
	total := 0
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return 0, err
		}
		total += int(page.Count)
	}
	return total, nil
}

func (m *Dynamo) GetBlockNodes(ctx context.Context, blockID int64, activeOnly bool) (node.NodeList, error) {
	var filter *expression.ConditionBuilder
	if activeOnly {
		f := expression.Name("IsActive").Equal(expression.Value(true))
		filter = &f
	}
	items, err := m.query(ctx, blockIndex, expression.Key("GSI2PK").Equal(expression.Value(blockPK(blockID))), filter)
	if err != nil {
		return nil, err
	}
	return m.nodes(ctx, items)
}

func (m *Dynamo) AddNode(ctx context.Context, n *node.Node) (int64, error) {
	if err := n.Validate(); err != nil {
		return 0, err
	}
	if n.HasID() {
		return 0, node.ErrIDAssigned
	}
	row, err := database.NewNodeRow(n)
	if err != nil {
		return 0, err
	}
	id, err := m.nextID(ctx, typeNode)
	if err != nil {
		return 0, err
	}
	row.ID = id
	if err := m.putItem(ctx, newNodeItem(row), false); err != nil {
		return 0, err
	}
	return id, n.AssignID(id)
}

func (m *Dynamo) EditNode(ctx context.Context, n *node.Node) error {
	if err := n.Validate(); err != nil {
		return err
	}
	row, err := database.NewNodeRow(n)
	if err != nil {
		return err
	}
	return m.putItem(ctx, newNodeItem(row), true)
}

func (m *Dynamo) DeleteNode(ctx context.Context, nodeID int64) error {
	expr, err := expression.NewBuilder().
		WithCondition(expression.AttributeExists(expression.Name("PK"))).
		Build()
	if err != nil {
		return err
	}
	_, err = m.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                 aws.String(m.table),
		Key:                       metadataKey(nodePK(nodeID)),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return database.ErrNotFound
	}
	return err
}

func (m *Dynamo) Close() error {
	return nil
}
