/*
 * Copyright © 2025 Angryss Software Inc., All rights reserved.
 */

package sharedinfra

// Built-in discriminators.
const (
	TypeContainerOrchestrator    = "container-orchestrator"
	TypeRelationalDatabaseServer = "relational-database-server"
	TypeServiceBus               = "service-bus"
	TypeStorage                  = "storage"
)

func init() {
	Register(TypeContainerOrchestrator, func() Configuration { return &ContainerOrchestrator{} })
	Register(TypeRelationalDatabaseServer, func() Configuration { return &RelationalDatabaseServer{} })
	Register(TypeServiceBus, func() Configuration { return &ServiceBus{} })
	Register(TypeStorage, func() Configuration { return &Storage{} })
}

// ContainerOrchestrator configures a managed container orchestrator
// (e.g. Kubernetes, OpenShift).
type ContainerOrchestrator struct {
	CloudServiceName string `json:"cloudServiceName" validate:"required,max=100"`
}

func (*ContainerOrchestrator) ConfigurationType() string { return TypeContainerOrchestrator }

// RelationalDatabaseServer configures a relational database server
// (e.g. PostgreSQL, MySQL).
type RelationalDatabaseServer struct {
	Engine           string `json:"engine" validate:"required,oneof=postgres mysql mariadb sqlserver"`
	Version          string `json:"version" validate:"required,max=20"`
	CloudServiceName string `json:"cloudServiceName" validate:"required,max=100"`
}

func (*RelationalDatabaseServer) ConfigurationType() string { return TypeRelationalDatabaseServer }

// ServiceBus configures a service bus or message broker
// (e.g. Kafka, RabbitMQ).
type ServiceBus struct {
	CloudServiceName string `json:"cloudServiceName" validate:"required,max=100"`
}

func (*ServiceBus) ConfigurationType() string { return TypeServiceBus }

// Storage configures an object storage resource
// (e.g. S3, Azure Blob Storage, GCS).
type Storage struct {
	CloudServiceName string `json:"cloudServiceName" validate:"required,max=100"`
}

func (*Storage) ConfigurationType() string { return TypeStorage }
