package sqlinline

// Retention: completed jobs age out faster than failed ones, and each
// terminal status additionally keeps at most a fixed number of newest rows.
const QPurgeTerminalJobs = `--sql 0a76d02a-e505-4827-baec-63c0318d1460
delete from jobs
where terminal_at is not null
  and (
    (status = 'completed' and terminal_at < $1)
    or (status = 'failed' and terminal_at < $2)
    or id in (
        select id from jobs
        where terminal_at is not null and status = 'completed'
        order by terminal_at desc
        offset $3
    )
    or id in (
        select id from jobs
        where terminal_at is not null and status = 'failed'
        order by terminal_at desc
        offset $3
    )
  );
`

// A local claim whose worker died never finalizes on its own; returning it to
// the queue makes it claimable again. next_retry_at moves up so a free worker
// picks it up immediately.
const QRequeueStaleLocalJobs = `--sql 9c1db1de-41a7-4be2-8a43-2f7c70a15d2a
update jobs
set status = 'queued', next_retry_at = now(), updated_at = now()
where provider = 'local'
  and status = 'processing'
  and terminal_at is null
  and updated_at < $1;
`

// Jobs that never reach a terminal state still age out of the queue.
const QPurgeAbandonedJobs = `--sql 5e80f1c3-9d4f-4616-9f0a-6a7c9a3d2b41
delete from jobs
where terminal_at is null
  and created_at < $1;
`

const QPurgeOldBatches = `--sql 7a7c0ae3-3d7e-4895-83aa-5c052dc5f7e7
delete from batches
where completed_at is not null and completed_at < $1;
`
