package feast

import (
	"strconv"
	"strings"
)

// NewClient 按端点创建 gRPC 客户端。
//
// endpoint 形如 "localhost:6565" 或 "grpc://localhost:6565"，
// 未写端口时用默认端口 6565。
//
// 示例：
//
//	client, err := feast.NewClient("localhost:6565", "bookrec")
//	svc := feast.NewService(client, nil, nil)
func NewClient(endpoint, project string, opts ...ClientOption) (Client, error) {
	host, port := parseEndpoint(endpoint)
	return NewGrpcClient(host, port, project, opts...)
}

// parseEndpoint 解析端点地址，返回 host 和 port（无端口时 port 为 0）。
func parseEndpoint(endpoint string) (string, int) {
	endpoint = strings.TrimPrefix(endpoint, "grpc://")

	parts := strings.Split(endpoint, ":")
	if len(parts) == 2 {
		if port, err := strconv.Atoi(parts[1]); err == nil {
			return parts[0], port
		}
	}
	return endpoint, 0
}
