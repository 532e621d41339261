package datastore

import (
	"strings"
	"sync"

	"github.com/aliyun/aliyun-tablestore-go-sdk/tablestore"
	"github.com/devsapp/serverless-automl-api/pkg/config"
)

var (
	otsClient    *tablestore.TableStoreClient
	otsOnce      sync.Once
	strToOtsType = map[string]tablestore.DefinedColumnType{
		kindText:  tablestore.DefinedColumn_STRING,
		kindInt:   tablestore.DefinedColumn_INTEGER,
		kindFloat: tablestore.DefinedColumn_DOUBLE,
	}
)

// example: "TEXT" to tablestore.DefinedColumn_STRING
func getOtsType(s string) tablestore.DefinedColumnType {
	return strToOtsType[columnKind(s)]
}

// initOtsClient init ots client, only first call valid
func initOtsClient(conf *config.Config) {
	otsOnce.Do(func() {
		otsClient = tablestore.NewClientWithConfig(conf.OtsEndpoint, conf.OtsInstanceName,
			conf.AccessKeyId, conf.AccessKeySecret, conf.AccessKeyToken, nil)
	})
}

// OtsStore tablestore backend, GetRow reads the latest acknowledged write
type OtsStore struct {
	config *Config
}

func NewOtsDatastore(cfg *Config, conf *config.Config) (*OtsStore, error) {
	initOtsClient(conf)

	// check table is exist; if not create
	describeTableRequest := &tablestore.DescribeTableRequest{
		TableName: cfg.TableName,
	}
	if tableInfo, err := otsClient.DescribeTable(describeTableRequest); err == nil && tableInfo.TableMeta != nil {
		return &OtsStore{config: cfg}, nil
	}
	// create table
	createTableRequest := new(tablestore.CreateTableRequest)
	tableMeta := new(tablestore.TableMeta)
	tableMeta.TableName = cfg.TableName
	tableMeta.AddPrimaryKeyColumn(cfg.PrimaryKeyColumnName, tablestore.PrimaryKeyType_STRING)
	for field, cate := range cfg.ColumnConfig {
		tableMeta.AddDefinedColumn(field, getOtsType(cate))
	}
	tableOption := new(tablestore.TableOption)
	tableOption.TimeToAlive = cfg.TimeToAlive
	tableOption.MaxVersion = cfg.MaxVersion
	reservedThroughput := new(tablestore.ReservedThroughput)
	reservedThroughput.Readcap = 0
	reservedThroughput.Writecap = 0
	createTableRequest.TableMeta = tableMeta
	createTableRequest.TableOption = tableOption
	createTableRequest.ReservedThroughput = reservedThroughput

	if _, err := otsClient.CreateTable(createTableRequest); err != nil {
		return nil, err
	}
	return &OtsStore{config: cfg}, nil
}

func (o *OtsStore) primaryKey(key string) *tablestore.PrimaryKey {
	pk := new(tablestore.PrimaryKey)
	pk.AddPrimaryKeyColumn(o.config.PrimaryKeyColumnName, key)
	return pk
}

// attribute columns only, ots returns the primary key apart
func (o *OtsStore) attrColumns(columns []string) []string {
	attrs := make([]string, 0, len(columns))
	for _, col := range columns {
		if col != o.config.PrimaryKeyColumnName {
			attrs = append(attrs, col)
		}
	}
	return attrs
}

// otsValue ots integer columns only take int64
func otsValue(v interface{}) interface{} {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case float32:
		return float64(n)
	}
	return v
}

func (o *OtsStore) Get(key string, columns []string) (map[string]interface{}, error) {
	getRowRequest := new(tablestore.GetRowRequest)
	getRowRequest.SingleRowQueryCriteria = &tablestore.SingleRowQueryCriteria{
		PrimaryKey:   o.primaryKey(key),
		ColumnsToGet: o.attrColumns(columns),
		TableName:    o.config.TableName,
		MaxVersion:   1,
	}
	resp, err := otsClient.GetRow(getRowRequest)
	if err != nil {
		return nil, err
	}
	if len(resp.PrimaryKey.PrimaryKeys) == 0 {
		return nil, nil
	}
	ret := make(map[string]interface{})
	for _, col := range resp.Columns {
		ret[col.ColumnName] = col.Value
	}
	for _, col := range columns {
		if col == o.config.PrimaryKeyColumnName {
			ret[col] = key
		}
	}
	return ret, nil
}

func (o *OtsStore) Put(key string, datas map[string]interface{}) error {
	putRowRequest := new(tablestore.PutRowRequest)
	putRowChange := new(tablestore.PutRowChange)
	putRowChange.TableName = o.config.TableName
	putRowChange.PrimaryKey = o.primaryKey(key)
	for col, data := range datas {
		if col == o.config.PrimaryKeyColumnName {
			continue
		}
		if data == nil {
			continue
		}
		putRowChange.AddColumn(col, otsValue(data))
	}
	putRowChange.SetCondition(tablestore.RowExistenceExpectation_IGNORE)
	putRowRequest.PutRowChange = putRowChange
	if _, err := otsClient.PutRow(putRowRequest); err != nil {
		return err
	}
	return nil
}

func (o *OtsStore) Update(key string, datas map[string]interface{}) error {
	if len(datas) == 0 {
		return nil
	}
	updateRowRequest := new(tablestore.UpdateRowRequest)
	updateRowChange := new(tablestore.UpdateRowChange)
	updateRowChange.TableName = o.config.TableName
	updateRowChange.PrimaryKey = o.primaryKey(key)
	for col, data := range datas {
		if data == nil {
			updateRowChange.DeleteColumn(col)
			continue
		}
		updateRowChange.PutColumn(col, otsValue(data))
	}
	updateRowChange.SetCondition(tablestore.RowExistenceExpectation_EXPECT_EXIST)
	updateRowRequest.UpdateRowChange = updateRowChange
	if _, err := otsClient.UpdateRow(updateRowRequest); err != nil {
		if strings.Contains(err.Error(), "OTSConditionCheckFail") {
			return ErrNotExist
		}
		return err
	}
	return nil
}

func (o *OtsStore) Delete(key string) error {
	deleteRowReq := new(tablestore.DeleteRowRequest)
	deleteRowReq.DeleteRowChange = new(tablestore.DeleteRowChange)
	deleteRowReq.DeleteRowChange.TableName = o.config.TableName
	deleteRowReq.DeleteRowChange.PrimaryKey = o.primaryKey(key)
	deleteRowReq.DeleteRowChange.SetCondition(tablestore.RowExistenceExpectation_IGNORE)
	if _, err := otsClient.DeleteRow(deleteRowReq); err != nil {
		return err
	}
	return nil
}

func (o *OtsStore) ListAll(columns []string) (map[string]map[string]interface{}, error) {
	startPK := new(tablestore.PrimaryKey)
	startPK.AddPrimaryKeyColumnWithMinValue(o.config.PrimaryKeyColumnName)
	endPK := new(tablestore.PrimaryKey)
	endPK.AddPrimaryKeyColumnWithMaxValue(o.config.PrimaryKeyColumnName)

	resp := make(map[string]map[string]interface{})
	for startPK != nil {
		getRangeRequest := &tablestore.GetRangeRequest{
			RangeRowQueryCriteria: &tablestore.RangeRowQueryCriteria{
				TableName:       o.config.TableName,
				StartPrimaryKey: startPK,
				EndPrimaryKey:   endPK,
				Direction:       tablestore.FORWARD,
				MaxVersion:      1,
				Limit:           1000,
				ColumnsToGet:    o.attrColumns(columns),
			},
		}
		getRangeResp, err := otsClient.GetRange(getRangeRequest)
		if err != nil {
			return nil, err
		}
		for _, row := range getRangeResp.Rows {
			result := make(map[string]interface{})
			key := row.PrimaryKey.PrimaryKeys[0].Value.(string)
			for _, col := range row.Columns {
				result[col.ColumnName] = col.Value
			}
			result[o.config.PrimaryKeyColumnName] = key
			resp[key] = result
		}
		startPK = getRangeResp.NextStartPrimaryKey
	}
	return resp, nil
}

func (o *OtsStore) Close() error {
	// client is shared by tables
	return nil
}
