package executor

import (
	"bytes"
	"context"
	"fmt"

	openapi "github.com/alibabacloud-go/darabonba-openapi/v2/client"
	fc3 "github.com/alibabacloud-go/fc-20230330/client"
	fc "github.com/alibabacloud-go/fc-open-20210406/v2/client"
	fcService "github.com/alibabacloud-go/tea-utils/v2/service"
	"github.com/devsapp/serverless-automl-api/pkg/config"
	"github.com/devsapp/serverless-automl-api/pkg/job"
	"github.com/devsapp/serverless-automl-api/pkg/utils"
	"github.com/sirupsen/logrus"
)

const (
	invocationAsync = "Async"
	requestIdHeader = "x-fc-request-id"
)

// invoker one async invocation, returns the request id when the platform sent one
type invoker interface {
	invoke(payload []byte) (string, error)
}

// FcExecutor async invocation of the training worker function
type FcExecutor struct {
	invoker invoker
}

func isFc3(conf *config.Config) bool {
	return conf.ServiceName == ""
}

func NewFcExecutor(conf *config.Config) (*FcExecutor, error) {
	fcEndpoint := fmt.Sprintf("%s.%s.fc.aliyuncs.com", conf.AccountId, conf.Region)
	clientConf := new(openapi.Config).SetAccessKeyId(conf.AccessKeyId).
		SetAccessKeySecret(conf.AccessKeySecret).SetSecurityToken(conf.AccessKeyToken).
		SetProtocol("HTTP").SetEndpoint(fcEndpoint)
	if isFc3(conf) {
		client, err := fc3.NewClient(clientConf)
		if err != nil {
			return nil, err
		}
		return &FcExecutor{invoker: &fc3Invoker{client: client, conf: conf}}, nil
	}
	client, err := fc.NewClient(clientConf)
	if err != nil {
		return nil, err
	}
	return &FcExecutor{invoker: &fc2Invoker{client: client, conf: conf}}, nil
}

func (e *FcExecutor) Submit(ctx context.Context, j *job.Job) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	payload, err := EncodePayload(j.ID)
	if err != nil {
		return "", err
	}
	requestId, err := e.invoker.invoke(payload)
	if err != nil {
		return "", fmt.Errorf("invoke function: %w", err)
	}
	if requestId == "" {
		requestId = j.ID
	}
	logrus.WithFields(logrus.Fields{"jobId": j.ID}).Infof("fc async invoke accepted, requestId=%s", requestId)
	return requestId, nil
}

// --------------fc3.0--------------
type fc3Invoker struct {
	client *fc3.Client
	conf   *config.Config
}

func (f *fc3Invoker) request(payload []byte) (*fc3.InvokeFunctionRequest, *fc3.InvokeFunctionHeaders) {
	req := new(fc3.InvokeFunctionRequest).SetRequest(bytes.NewReader(payload))
	if f.conf.Qualifier != "" {
		req.SetQualifier(f.conf.Qualifier)
	}
	return req, new(fc3.InvokeFunctionHeaders).SetXFcInvocationType(invocationAsync)
}

func (f *fc3Invoker) invoke(payload []byte) (string, error) {
	req, header := f.request(payload)
	resp, err := f.client.InvokeFunctionWithOptions(utils.String(f.conf.FunctionName), req, header,
		&fcService.RuntimeOptions{})
	if err != nil {
		return "", err
	}
	return headerValue(resp.Headers, requestIdHeader), nil
}

// ---------fc2.0----------
type fc2Invoker struct {
	client *fc.Client
	conf   *config.Config
}

func (f *fc2Invoker) request(payload []byte) (*fc.InvokeFunctionRequest, *fc.InvokeFunctionHeaders) {
	req := new(fc.InvokeFunctionRequest).SetBody(payload)
	if f.conf.Qualifier != "" {
		req.SetQualifier(f.conf.Qualifier)
	}
	return req, &fc.InvokeFunctionHeaders{
		XFcAccountId:      utils.String(f.conf.AccountId),
		XFcInvocationType: utils.String(invocationAsync),
	}
}

func (f *fc2Invoker) invoke(payload []byte) (string, error) {
	req, header := f.request(payload)
	resp, err := f.client.InvokeFunctionWithOptions(utils.String(f.conf.ServiceName),
		utils.String(f.conf.FunctionName), req, header, &fcService.RuntimeOptions{})
	if err != nil {
		return "", err
	}
	return headerValue(resp.Headers, requestIdHeader), nil
}

func headerValue(headers map[string]*string, key string) string {
	if v, ok := headers[key]; ok && v != nil {
		return *v
	}
	return ""
}
