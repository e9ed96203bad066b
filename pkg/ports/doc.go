/*
Package ports defines the driven ports (interfaces) for the flow engine.

These interfaces decouple the engine from its collaborators: the outbound
messaging provider, the HTTP caller used by http_api nodes, the scheduler
for delayed sequence steps, webhook delivery, assistant handoff, and the
persistence of execution state.

# Key Interfaces

  - Messenger: delivers outbound messages to the conversation.
  - Caller: performs bounded outbound HTTP requests.
  - Scheduler: fires sequence steps at a later time, surviving restarts.
  - StateStore: persists ExecutionState per instance.
  - DistributedLocker: coordinates instance access across replicas.
*/
package ports
