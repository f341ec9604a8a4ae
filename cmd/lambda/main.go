// Command lambda runs the REST API behind API Gateway.
package main

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	chiadapter "github.com/awslabs/aws-lambda-go-api-proxy/chi"
	"go.uber.org/zap"

	"sidebet-backend/infrastructure/di"
)

var adapter *chiadapter.ChiLambda

func init() {
	container, err := di.NewContainer(context.Background())
	if err != nil {
		zap.NewExample().Fatal("startup failed", zap.Error(err))
	}
	adapter = chiadapter.New(container.Router)
}

func handler(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return adapter.ProxyWithContext(ctx, req)
}

func main() {
	lambda.Start(handler)
}
