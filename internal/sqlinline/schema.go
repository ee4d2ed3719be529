package sqlinline

// Schema statements are applied in order at process start. Each statement is
// idempotent so either binary can run first.
var Schema = []string{
	QCreateJobsTable,
	QCreateJobsClaimIndex,
	QCreateJobsTerminalIndex,
	QCreateBatchesTable,
}

const QCreateJobsTable = `--sql 55aa5476-d928-4c7b-95a6-d0808fb1dbdc
create table if not exists jobs (
    id                uuid primary key,
    kind              text not null,
    provider          text not null,
    provider_job_id   text not null default '',
    status            text not null default 'queued',
    payload           jsonb not null default '{}'::jsonb,
    progress          int not null default 0,
    attempts          int not null default 0,
    next_retry_at     timestamptz not null default now(),
    webhook_url       text not null default '',
    cached_result_url text,
    result            jsonb,
    error_message     text not null default '',
    terminal_at       timestamptz,
    created_at        timestamptz not null default now(),
    updated_at        timestamptz not null default now()
);
`

const QCreateJobsClaimIndex = `--sql 855ddf48-df9b-44ad-b86b-834a2171688e
create index if not exists jobs_local_claim_idx
    on jobs (next_retry_at)
    where status = 'queued' and provider = 'local';
`

const QCreateJobsTerminalIndex = `--sql bad01844-63d3-4035-b4f4-a7dd62fd4d06
create index if not exists jobs_terminal_idx
    on jobs (status, terminal_at)
    where terminal_at is not null;
`

const QCreateBatchesTable = `--sql 4323cfc2-e882-4175-8c6f-34c9707ceb1b
create table if not exists batches (
    id             uuid primary key,
    job_ids        uuid[] not null,
    total_jobs     int not null,
    webhook_url    text not null default '',
    webhook_sent   boolean not null default false,
    final_status   text not null default '',
    completed_jobs int not null default 0,
    failed_jobs    int not null default 0,
    created_at     timestamptz not null default now(),
    completed_at   timestamptz
);
`
