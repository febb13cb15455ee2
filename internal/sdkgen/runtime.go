package sdkgen

// sharedTypes declares the response envelope, the error type, the fetch
// abstraction and the request options facets.
const sharedTypes = `export interface ApiResponse<T> {
  data: T;
  message?: string;
  success: boolean;
}

export class ApiError extends Error {
  readonly status: number;

  constructor(status: number, message: string) {
    super(message);
    this.name = "ApiError";
    this.status = status;
  }
}

export type FetchFn = (input: string, init?: RequestInit) => Promise<Response>;

/** A facet typed never cannot be supplied; any other facet is required. */
export type Facet<K extends string, T> = [T] extends [never] ? { [P in K]?: never } : { [P in K]: T };

export interface RequestConfig {
  signal?: AbortSignal;
}

export type RequestOptions<TParams = never, TQuery = never, TBody = never, THeaders = never> =
  Facet<"params", TParams> &
  Facet<"query", TQuery> &
  Facet<"body", TBody> &
  Facet<"headers", THeaders> &
  RequestConfig;

export interface RequestShape extends RequestConfig {
  params?: unknown;
  query?: unknown;
  body?: unknown;
  headers?: unknown;
}`

// clientBase is the low-level client every generated client extends.
const clientBase = `export class BaseClient {
  protected readonly baseUrl: string;
  protected readonly fetchFn: FetchFn;
  private readonly defaultHeaders: Record<string, string> = {};
  private bearerToken?: string;

  constructor(baseUrl: string, fetchFn?: FetchFn) {
    this.baseUrl = baseUrl.replace(/\/+$/, "");
    this.fetchFn = fetchFn ?? ((input, init) => fetch(input, init));
  }

  setHeader(name: string, value: string): void {
    this.defaultHeaders[name] = value;
  }

  removeHeader(name: string): void {
    delete this.defaultHeaders[name];
  }

  setBearerToken(token: string | undefined): void {
    this.bearerToken = token;
  }

  protected async request<T>(method: string, path: string, options: RequestShape = {}): Promise<T> {
    const headers: Record<string, string> = { ...this.defaultHeaders };
    if (options.headers && typeof options.headers === "object") {
      for (const [key, value] of Object.entries(options.headers as Record<string, unknown>)) {
        if (value !== undefined && value !== null) {
          headers[key] = String(value);
        }
      }
    }
    if (this.bearerToken && !hasHeader(headers, "authorization")) {
      headers["Authorization"] = ` + "`Bearer ${this.bearerToken}`" + `;
    }
    const init: RequestInit = { method, headers, signal: options.signal };
    if (options.body !== undefined) {
      init.body = JSON.stringify(options.body);
      if (!hasHeader(headers, "content-type")) {
        headers["Content-Type"] = "application/json";
      }
    }

    const response = await this.fetchFn(this.baseUrl + path + buildQuery(options.query), init);
    if (!response.ok) {
      throw new ApiError(response.status, await errorMessage(response));
    }
    if (response.status === 204) {
      return undefined as T;
    }
    const text = await response.text();
    return (text ? JSON.parse(text) : undefined) as T;
  }
}

function hasHeader(headers: Record<string, string>, name: string): boolean {
  return Object.keys(headers).some((key) => key.toLowerCase() === name);
}

function buildQuery(query: unknown): string {
  if (!query || typeof query !== "object") {
    return "";
  }
  const search = new URLSearchParams();
  for (const [key, value] of Object.entries(query as Record<string, unknown>)) {
    if (value === undefined || value === null) {
      continue;
    }
    for (const item of Array.isArray(value) ? value : [value]) {
      search.append(key, String(item));
    }
  }
  const encoded = search.toString();
  return encoded ? "?" + encoded : "";
}

async function errorMessage(response: Response): Promise<string> {
  const text = await response.text().catch(() => "");
  if (text) {
    try {
      const body = JSON.parse(text);
      if (body && typeof body.message === "string") {
        return body.message;
      }
    } catch {
      // not JSON
    }
    return text;
  }
  return response.statusText || "HTTP " + response.status;
}`
